package scraper

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDArticle is the subset of a schema.org BlogPosting/Article that static
// site generators embed in post pages.
type jsonLDArticle struct {
	Type        any    `json:"@type"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
}

// jsonLDDescription returns the description of the first JSON-LD article
// block on the page. Blocks may be a single object, an array, or an @graph.
func jsonLDDescription(doc *goquery.Document) string {
	var found string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := []byte(strings.TrimSpace(s.Text()))
		for _, a := range decodeJSONLD(raw) {
			if isArticleType(a.Type) && strings.TrimSpace(a.Description) != "" {
				found = strings.TrimSpace(a.Description)
				return false
			}
		}
		return true
	})
	return found
}

func decodeJSONLD(raw []byte) []jsonLDArticle {
	var single struct {
		jsonLDArticle
		Graph []jsonLDArticle `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &single); err == nil {
		return append([]jsonLDArticle{single.jsonLDArticle}, single.Graph...)
	}
	var many []jsonLDArticle
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func isArticleType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Article") || v == "BlogPosting"
	case []any:
		for _, item := range v {
			if isArticleType(item) {
				return true
			}
		}
	}
	return false
}
