package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/memory"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestBackfillDescriptions(t *testing.T) {
	ctx := context.Background()
	userID := types.UserID("sam")

	t.Run("completes label-only edges", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		sam := createTestEntity(t, repo, userID, "sam")
		gym := createTestEntity(t, repo, userID, "the gym")
		createTestEdge(t, repo, userID, sam, gym, "goes to", "sam goes to the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "pays for", "sam pays for the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "complains about", "sam complains about the gym", vectorAt(0))

		done, err := uc.BackfillDescriptions(ctx, userID, 0)
		gt.NoError(t, err).Required()
		gt.Value(t, done).Equal(3)

		pending, err := repo.Relationship().ListWithoutDescription(ctx, userID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(0)
	})

	t.Run("a failing edge is skipped, the rest complete", func(t *testing.T) {
		gw := newMockGateway()
		gw.describeRelationshipFn = func(ctx context.Context, label string) (string, error) {
			if label == "pays for" {
				return "", errors.New("model overloaded")
			}
			return "the phrase " + label + " connects a subject to an object", nil
		}
		repo := memory.New()
		uc := usecase.New(repo, gw)

		sam := createTestEntity(t, repo, userID, "sam")
		gym := createTestEntity(t, repo, userID, "the gym")
		createTestEdge(t, repo, userID, sam, gym, "goes to", "sam goes to the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "pays for", "sam pays for the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "complains about", "sam complains about the gym", vectorAt(0))

		done, err := uc.BackfillDescriptions(ctx, userID, 0)
		gt.NoError(t, err).Required()
		gt.Value(t, done).Equal(2)

		pending, err := repo.Relationship().ListWithoutDescription(ctx, userID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(1)
		gt.Value(t, pending[0].Label).Equal("pays for")
	})

	t.Run("already described edges are left alone", func(t *testing.T) {
		gw := newMockGateway()
		var calls atomic.Int32
		gw.describeRelationshipFn = func(ctx context.Context, label string) (string, error) {
			calls.Add(1)
			return "the phrase " + label + " connects a subject to an object", nil
		}
		repo := memory.New()
		uc := usecase.New(repo, gw)

		sam := createTestEntity(t, repo, userID, "sam")
		gym := createTestEntity(t, repo, userID, "the gym")
		rel := createTestEdge(t, repo, userID, sam, gym, "goes to", "sam goes to the gym", vectorAt(0))
		gt.NoError(t, repo.Relationship().UpdateDescription(ctx, userID, rel.ID, "an elaboration", vectorAt(0))).Required()

		done, err := uc.BackfillDescriptions(ctx, userID, 0)
		gt.NoError(t, err).Required()
		gt.Value(t, done).Equal(0)
		gt.Value(t, calls.Load()).Equal(int32(0))
	})

	t.Run("the limit caps one sweep", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		sam := createTestEntity(t, repo, userID, "sam")
		gym := createTestEntity(t, repo, userID, "the gym")
		createTestEdge(t, repo, userID, sam, gym, "goes to", "sam goes to the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "pays for", "sam pays for the gym", vectorAt(0))
		createTestEdge(t, repo, userID, sam, gym, "complains about", "sam complains about the gym", vectorAt(0))

		done, err := uc.BackfillDescriptions(ctx, userID, 2)
		gt.NoError(t, err).Required()
		gt.Value(t, done).Equal(2)

		pending, err := repo.Relationship().ListWithoutDescription(ctx, userID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(1)
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		uc := usecase.New(memory.New(), newMockGateway())
		_, err := uc.BackfillDescriptions(ctx, "", 10)
		gt.Error(t, err)
	})
}
