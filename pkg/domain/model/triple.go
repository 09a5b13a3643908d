package model

import "strings"

// Triple is one extracted statement fragment. Source and Target are entity
// names (first-person placeholders already substituted with the acting
// user), Relationship is the connecting phrase. IsAlias marks naming
// statements ("A is B" where both sides are names of the same referent),
// which route to the alias graph instead of the relationship store.
type Triple struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
	IsAlias      bool   `json:"is_alias"`
}

// Complete reports whether the fragment carries all three parts needed to
// act on it
func (t Triple) Complete() bool {
	return strings.TrimSpace(t.Source) != "" &&
		strings.TrimSpace(t.Relationship) != "" &&
		strings.TrimSpace(t.Target) != ""
}

// EntityNames returns the entity names the fragment mentions
func (t Triple) EntityNames() []string {
	return []string{strings.TrimSpace(t.Source), strings.TrimSpace(t.Target)}
}

// ParsedQuery is the structured form of a question: the entity mentions in
// asking order and the relationship phrase to score edges against. The same
// placeholder and attribution conventions as extraction apply, so query
// phrasing stays comparable to stored phrasing.
type ParsedQuery struct {
	Entities           []string `json:"entities"`
	RelationshipPhrase string   `json:"relationship_phrase"`
}

// PrimaryEntity returns the first entity mention, the one retrieval anchors
// on, or "" when the question named none
func (p *ParsedQuery) PrimaryEntity() string {
	for _, e := range p.Entities {
		if name := strings.TrimSpace(e); name != "" {
			return name
		}
	}
	return ""
}
