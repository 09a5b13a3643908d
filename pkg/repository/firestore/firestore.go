package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
)

// Firestore persists the graph under users/{userID}/... subcollections.
// Documents that must be unique per natural key use a digest of that key as
// the document ID, so concurrent duplicate inserts collide on Create and
// come back as codes.AlreadyExists.
type Firestore struct {
	client       *firestore.Client
	entity       *entityRepository
	alias        *aliasRepository
	relationship *relationshipRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces all collections, used to isolate test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.entity.collectionPrefix = prefix
		f.alias.collectionPrefix = prefix
		f.relationship.collectionPrefix = prefix
	}
}

// New connects to Firestore. databaseID may be empty for the default
// database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		entity:       newEntityRepository(client),
		alias:        newAliasRepository(client),
		relationship: newRelationshipRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Entity() interfaces.EntityRepository {
	return f.entity
}

func (f *Firestore) Alias() interfaces.AliasRepository {
	return f.alias
}

func (f *Firestore) Relationship() interfaces.RelationshipRepository {
	return f.relationship
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// docDigest derives a document ID from a natural key. Fields are joined
// with a unit separator so distinct keys never collide.
func docDigest(fields ...string) string {
	h := sha256.New()
	for i, field := range fields {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
