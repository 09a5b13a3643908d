package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// Entity is a named referent (person, thing, concept) scoped to one user.
// The (UserID, Name) pair is unique. The description starts as a generated
// summary of the name and grows by context appends; the embedding is
// recomputed over the full description on every append.
type Entity struct {
	ID                   types.EntityID
	UserID               types.UserID
	Name                 string
	Description          string
	DescriptionEmbedding []float32
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Validate checks that the entity carries its scope key and a name
func (e *Entity) Validate() error {
	if err := e.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid entity owner")
	}
	if strings.TrimSpace(e.Name) == "" {
		return goerr.New("entity name is required", goerr.V("userID", e.UserID))
	}
	return nil
}

// AppendedDescription returns the description with snippet concatenated.
// Appends are monotonic: earlier context is never rewritten or summarized,
// so repeated mentions grow the text without bound.
func (e *Entity) AppendedDescription(snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return e.Description
	}
	if e.Description == "" {
		return snippet
	}
	return e.Description + "\n" + snippet
}
