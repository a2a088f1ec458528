package models

// Discussion is a GitHub Discussion already present in the target category.
type Discussion struct {
	ID    string
	Title string
	URL   string
}

// Target holds the GitHub node IDs a discussion is created against.
type Target struct {
	Owner        string
	Name         string
	Category     string
	RepositoryID string
	CategoryID   string
}

// FullName returns "owner/name".
func (t Target) FullName() string {
	return t.Owner + "/" + t.Name
}
