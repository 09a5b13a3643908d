package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/firestore"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/memory"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/postgres"
)

func runRelationshipRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns ID and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")

		rel := &model.Relationship{
			UserID:         userID,
			SourceEntityID: types.NewEntityID(),
			Label:          "favorite country artist is",
			TargetEntityID: types.NewEntityID(),
			LabelEmbedding: testEmbedding(0.3),
			OriginalInput:  "Jake Owen is my favorite country artist",
		}

		created, err := repo.Relationship().Create(ctx, rel)
		if err != nil {
			t.Fatalf("failed to create relationship: %v", err)
		}

		if created.ID == "" {
			t.Error("expected non-empty ID")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected non-zero CreatedAt")
		}
		if created.OriginalInput != "Jake Owen is my favorite country artist" {
			t.Errorf("unexpected OriginalInput: %q", created.OriginalInput)
		}
	})

	t.Run("Create without label fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         testUserID("user"),
			SourceEntityID: types.NewEntityID(),
			Label:          "  ",
			TargetEntityID: types.NewEntityID(),
		})
		if err == nil {
			t.Error("expected error for blank label")
		}
	})

	t.Run("Duplicate create returns ErrRelationshipExists", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")
		sourceID := types.NewEntityID()
		targetID := types.NewEntityID()

		first, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: sourceID,
			Label:          "works at",
			TargetEntityID: targetID,
			LabelEmbedding: testEmbedding(0.1),
			OriginalInput:  "I work at the bakery",
		})
		if err != nil {
			t.Fatalf("failed to create relationship: %v", err)
		}

		_, err = repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: sourceID,
			Label:          "works at",
			TargetEntityID: targetID,
			LabelEmbedding: testEmbedding(0.2),
			OriginalInput:  "I still work at the bakery",
		})
		if !errors.Is(err, types.ErrRelationshipExists) {
			t.Errorf("expected ErrRelationshipExists, got %v", err)
		}

		// The conflict is recovered by fetching the existing row.
		existing, err := repo.Relationship().GetByKey(ctx, userID, sourceID, "works at", targetID)
		if err != nil {
			t.Fatalf("failed to get existing relationship: %v", err)
		}
		if existing.ID != first.ID {
			t.Errorf("expected existing ID=%s, got %s", first.ID, existing.ID)
		}
		if existing.OriginalInput != "I work at the bakery" {
			t.Errorf("expected original provenance, got %q", existing.OriginalInput)
		}
	})

	t.Run("GetByKey distinguishes labels and endpoints", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")
		sourceID := types.NewEntityID()
		targetID := types.NewEntityID()

		_, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: sourceID,
			Label:          "likes",
			TargetEntityID: targetID,
			LabelEmbedding: testEmbedding(0.1),
		})
		if err != nil {
			t.Fatalf("failed to create relationship: %v", err)
		}

		if _, err := repo.Relationship().GetByKey(ctx, userID, sourceID, "dislikes", targetID); !errors.Is(err, types.ErrRelationshipNotFound) {
			t.Errorf("expected ErrRelationshipNotFound for other label, got %v", err)
		}
		if _, err := repo.Relationship().GetByKey(ctx, userID, targetID, "likes", sourceID); !errors.Is(err, types.ErrRelationshipNotFound) {
			t.Errorf("expected ErrRelationshipNotFound for reversed endpoints, got %v", err)
		}
	})

	t.Run("ListBySource returns only outgoing edges", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")
		sourceID := types.NewEntityID()
		otherID := types.NewEntityID()

		for _, label := range []string{"likes", "visited"} {
			_, err := repo.Relationship().Create(ctx, &model.Relationship{
				UserID:         userID,
				SourceEntityID: sourceID,
				Label:          label,
				TargetEntityID: types.NewEntityID(),
				LabelEmbedding: testEmbedding(0.1),
			})
			if err != nil {
				t.Fatalf("failed to create relationship %s: %v", label, err)
			}
		}
		_, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: otherID,
			Label:          "likes",
			TargetEntityID: sourceID,
			LabelEmbedding: testEmbedding(0.1),
		})
		if err != nil {
			t.Fatalf("failed to create incoming relationship: %v", err)
		}

		edges, err := repo.Relationship().ListBySource(ctx, userID, sourceID)
		if err != nil {
			t.Fatalf("failed to list by source: %v", err)
		}
		if len(edges) != 2 {
			t.Errorf("expected 2 outgoing edges, got %d", len(edges))
		}
		for _, edge := range edges {
			if edge.SourceEntityID != sourceID {
				t.Errorf("unexpected source in listing: %s", edge.SourceEntityID)
			}
		}
	})

	t.Run("Edges are scoped to the owning user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		owner := testUserID("owner")
		other := testUserID("other")
		sourceID := types.NewEntityID()

		created, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         owner,
			SourceEntityID: sourceID,
			Label:          "private edge",
			TargetEntityID: types.NewEntityID(),
			LabelEmbedding: testEmbedding(0.1),
		})
		if err != nil {
			t.Fatalf("failed to create relationship: %v", err)
		}

		if _, err := repo.Relationship().GetByID(ctx, other, created.ID); !errors.Is(err, types.ErrRelationshipNotFound) {
			t.Errorf("expected ErrRelationshipNotFound for other user, got %v", err)
		}

		edges, err := repo.Relationship().ListBySource(ctx, other, sourceID)
		if err != nil {
			t.Fatalf("failed to list by source: %v", err)
		}
		if len(edges) != 0 {
			t.Errorf("expected no cross-user edges, got %d", len(edges))
		}
	})

	t.Run("ListWithoutDescription finds backfill candidates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")

		bare, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: types.NewEntityID(),
			Label:          "likes",
			TargetEntityID: types.NewEntityID(),
			LabelEmbedding: testEmbedding(0.1),
		})
		if err != nil {
			t.Fatalf("failed to create bare relationship: %v", err)
		}

		_, err = repo.Relationship().Create(ctx, &model.Relationship{
			UserID:               userID,
			SourceEntityID:       types.NewEntityID(),
			Label:                "visited",
			TargetEntityID:       types.NewEntityID(),
			LabelEmbedding:       testEmbedding(0.2),
			Description:          "The subject has traveled to the object.",
			DescriptionEmbedding: testEmbedding(0.3),
		})
		if err != nil {
			t.Fatalf("failed to create described relationship: %v", err)
		}

		missing, err := repo.Relationship().ListWithoutDescription(ctx, userID, 10)
		if err != nil {
			t.Fatalf("failed to list without description: %v", err)
		}
		if len(missing) != 1 {
			t.Fatalf("expected 1 backfill candidate, got %d", len(missing))
		}
		if missing[0].ID != bare.ID {
			t.Errorf("expected candidate ID=%s, got %s", bare.ID, missing[0].ID)
		}
	})

	t.Run("UpdateDescription completes the backfill", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")

		created, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:         userID,
			SourceEntityID: types.NewEntityID(),
			Label:          "favorite country artist is",
			TargetEntityID: types.NewEntityID(),
			LabelEmbedding: testEmbedding(0.1),
		})
		if err != nil {
			t.Fatalf("failed to create relationship: %v", err)
		}

		description := "The subject considers the object their preferred country music performer."
		if err := repo.Relationship().UpdateDescription(ctx, userID, created.ID, description, testEmbedding(0.4)); err != nil {
			t.Fatalf("failed to update description: %v", err)
		}

		got, err := repo.Relationship().GetByID(ctx, userID, created.ID)
		if err != nil {
			t.Fatalf("failed to get relationship: %v", err)
		}
		if got.Description != description {
			t.Errorf("unexpected description: %q", got.Description)
		}
		if !got.HasDescription() {
			t.Error("expected HasDescription to be true after update")
		}

		missing, err := repo.Relationship().ListWithoutDescription(ctx, userID, 10)
		if err != nil {
			t.Fatalf("failed to list without description: %v", err)
		}
		if len(missing) != 0 {
			t.Errorf("expected no backfill candidates, got %d", len(missing))
		}
	})

	t.Run("UpdateDescription returns not found for missing edge", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Relationship().UpdateDescription(ctx, testUserID("user"), types.NewRelationshipID(), "text", testEmbedding(1))
		if !errors.Is(err, types.ErrRelationshipNotFound) {
			t.Errorf("expected ErrRelationshipNotFound, got %v", err)
		}
	})

	t.Run("CountByUser", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID("user")

		for _, label := range []string{"likes", "visited", "owns"} {
			_, err := repo.Relationship().Create(ctx, &model.Relationship{
				UserID:         userID,
				SourceEntityID: types.NewEntityID(),
				Label:          label,
				TargetEntityID: types.NewEntityID(),
				LabelEmbedding: testEmbedding(0.1),
			})
			if err != nil {
				t.Fatalf("failed to create relationship %s: %v", label, err)
			}
		}

		count, err := repo.Relationship().CountByUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to count relationships: %v", err)
		}
		if count != 3 {
			t.Errorf("expected count=3, got %d", count)
		}
	})
}

func newFirestoreRelationshipRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID)
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func newPostgresRelationshipRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	repo, err := postgres.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create postgres repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close postgres repository: %v", err)
		}
	})
	return repo
}

func TestMemoryRelationshipRepository(t *testing.T) {
	runRelationshipRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreRelationshipRepository(t *testing.T) {
	runRelationshipRepositoryTest(t, newFirestoreRelationshipRepository)
}

func TestPostgresRelationshipRepository(t *testing.T) {
	runRelationshipRepositoryTest(t, newPostgresRelationshipRepository)
}
