package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// Relationship is a directed, labeled edge between two entities of the same
// user. The (UserID, SourceEntityID, Label, TargetEntityID) key is unique
// and creation is idempotent. OriginalInput keeps the verbatim statement the
// edge was extracted from; retrieval hands those statements, never the
// structured triples, to answer synthesis.
//
// Description elaborates the label alone, independent of the entity pair, so
// edges of the same type stay comparable across the graph. It may be absent
// until the backfill succeeds; scoring falls back to LabelEmbedding then.
type Relationship struct {
	ID                   types.RelationshipID
	UserID               types.UserID
	SourceEntityID       types.EntityID
	Label                string
	TargetEntityID       types.EntityID
	LabelEmbedding       []float32
	Description          string
	DescriptionEmbedding []float32
	OriginalInput        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Validate checks the edge's scope key and endpoints
func (r *Relationship) Validate() error {
	if err := r.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid relationship owner")
	}
	if r.SourceEntityID == "" || r.TargetEntityID == "" {
		return goerr.New("relationship endpoints are required",
			goerr.V("source", r.SourceEntityID),
			goerr.V("target", r.TargetEntityID))
	}
	if strings.TrimSpace(r.Label) == "" {
		return goerr.New("relationship label is required", goerr.V("userID", r.UserID))
	}
	return nil
}

// HasDescription reports whether the elaborated description and its
// embedding have been filled in
func (r *Relationship) HasDescription() bool {
	return r.Description != "" && len(r.DescriptionEmbedding) > 0
}

// ScoringEmbedding returns the vector retrieval compares against: the
// description embedding when present, otherwise the label embedding
func (r *Relationship) ScoringEmbedding() []float32 {
	if len(r.DescriptionEmbedding) > 0 {
		return r.DescriptionEmbedding
	}
	return r.LabelEmbedding
}
