package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorConfig lists where a post page may carry its description, in
// priority order.
type SelectorConfig struct {
	Description []AttrSelector `json:"description"`
}

// AttrSelector picks the first element matching Selector and reads Attr from
// it, or its text when Attr is empty.
type AttrSelector struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if len(config.Description) == 0 {
		return SelectorConfig{}, fmt.Errorf("selector config has no description selectors")
	}
	for i, s := range config.Description {
		if s.Selector == "" {
			return SelectorConfig{}, fmt.Errorf("description selector %d is empty", i)
		}
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Description: []AttrSelector{
			{Selector: `meta[name="description"]`, Attr: "content"},
			{Selector: `meta[property="og:description"]`, Attr: "content"},
			{Selector: `meta[name="twitter:description"]`, Attr: "content"},
		},
	}
}
