package interfaces

import (
	"context"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// RelationshipRepository defines the interface for edge persistence
type RelationshipRepository interface {
	// Create inserts a new edge. The (user, source, label, target) key is
	// unique: a duplicate insert returns types.ErrRelationshipExists, which
	// callers treat as the edge already being present.
	Create(ctx context.Context, rel *model.Relationship) (*model.Relationship, error)

	// GetByID retrieves an edge by ID within the user's scope
	GetByID(ctx context.Context, userID types.UserID, id types.RelationshipID) (*model.Relationship, error)

	// GetByKey retrieves an edge by its full natural key
	GetByKey(ctx context.Context, userID types.UserID, sourceID types.EntityID, label string, targetID types.EntityID) (*model.Relationship, error)

	// ListBySource returns the outgoing edges of an entity. This is the
	// only read the graph walk performs.
	ListBySource(ctx context.Context, userID types.UserID, sourceID types.EntityID) ([]*model.Relationship, error)

	// ListWithoutDescription returns up to limit edges whose elaborated
	// description embedding is still missing, oldest first. A non-positive
	// limit returns all of them.
	ListWithoutDescription(ctx context.Context, userID types.UserID, limit int) ([]*model.Relationship, error)

	// UpdateDescription stores the elaborated description and its
	// embedding for an edge. The edge is immutable afterwards.
	UpdateDescription(ctx context.Context, userID types.UserID, id types.RelationshipID, description string, embedding []float32) error

	// CountByUser returns the number of edges owned by the user
	CountByUser(ctx context.Context, userID types.UserID) (int, error)
}
