package usecase_test

import (
	"context"
	"testing"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/memory"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// linkAlias ingests one naming statement "a is also known as b"
func linkAlias(t *testing.T, uc *usecase.UseCases, gw *mockGateway, userID types.UserID, a, b string) *model.IngestReceipt {
	t.Helper()
	gw.extractFn = singleTripleExtractor(model.Triple{
		Source:       a,
		Relationship: "is also known as",
		Target:       b,
		IsAlias:      true,
	})
	receipt, err := uc.Remember(context.Background(), userID, a+" is also known as "+b)
	gt.NoError(t, err).Required()
	return receipt
}

func TestAliasLinking(t *testing.T) {
	ctx := context.Background()
	userID := types.UserID("sam")

	t.Run("first link forms a group of two", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		receipt := linkAlias(t, uc, gw, userID, "Robert", "Bob")
		gt.Value(t, receipt.AliasesLinked).Equal(1)
		gt.Value(t, receipt.EdgesCreated).Equal(0)

		info, err := uc.Aliases(ctx, userID, "Robert")
		gt.NoError(t, err).Required()
		gt.Value(t, info.CanonicalName).Equal("Robert")
		gt.Array(t, info.Members).Length(2)
		gt.Array(t, info.Members).Has("Robert")
		gt.Array(t, info.Members).Has("Bob")

		groups, err := repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(1)
	})

	t.Run("later links join the existing group", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		linkAlias(t, uc, gw, userID, "Robert", "Bob")
		// grouped source pulls in an ungrouped target
		linkAlias(t, uc, gw, userID, "Bob", "Bobby")
		// ungrouped source joins a grouped target
		linkAlias(t, uc, gw, userID, "Rob", "Robert")

		info, err := uc.Aliases(ctx, userID, "Bobby")
		gt.NoError(t, err).Required()
		gt.Value(t, info.CanonicalName).Equal("Robert")
		gt.Array(t, info.Members).Length(4)
		gt.Array(t, info.Members).Has("Rob")

		groups, err := repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(1)
	})

	t.Run("linking two groups merges them", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		linkAlias(t, uc, gw, userID, "Margaret", "Meg")
		linkAlias(t, uc, gw, userID, "Peggy", "Peg")

		groups, err := repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(2)

		// Meg's group absorbs Peg's
		linkAlias(t, uc, gw, userID, "Meg", "Peg")

		groups, err = repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(1)

		info, err := uc.Aliases(ctx, userID, "Peggy")
		gt.NoError(t, err).Required()
		gt.Value(t, info.CanonicalName).Equal("Margaret")
		gt.Array(t, info.Members).Length(4)
		gt.Array(t, info.Members).Has("Margaret")
		gt.Array(t, info.Members).Has("Meg")
		gt.Array(t, info.Members).Has("Peggy")
		gt.Array(t, info.Members).Has("Peg")
	})

	t.Run("repeated and reversed links change nothing", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		linkAlias(t, uc, gw, userID, "Robert", "Bob")
		linkAlias(t, uc, gw, userID, "Robert", "Bob")
		linkAlias(t, uc, gw, userID, "Bob", "Robert")

		info, err := uc.Aliases(ctx, userID, "Bob")
		gt.NoError(t, err).Required()
		gt.Array(t, info.Members).Length(2)

		groups, err := repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(1)
	})

	t.Run("an entity named as its own alias is ignored", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		receipt := linkAlias(t, uc, gw, userID, "Robert", "Robert")
		gt.Value(t, receipt.AliasesLinked).Equal(1)
		gt.Value(t, receipt.Errors).Equal(0)

		groups, err := repo.Alias().CountGroupsByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, groups).Equal(0)
	})

	t.Run("alias fragments never create edges", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		linkAlias(t, uc, gw, userID, "Robert", "Bob")

		count, err := repo.Relationship().CountByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(0)
	})
}

func TestAliases(t *testing.T) {
	ctx := context.Background()
	userID := types.UserID("sam")

	t.Run("ungrouped entity is its own group of one", func(t *testing.T) {
		gw := newMockGateway()
		repo := memory.New()
		uc := usecase.New(repo, gw)

		createTestEntity(t, repo, userID, "Nashville")

		info, err := uc.Aliases(ctx, userID, "Nashville")
		gt.NoError(t, err).Required()
		gt.Value(t, info.CanonicalName).Equal("Nashville")
		gt.Array(t, info.Members).Length(1)
		gt.Array(t, info.Members).Has("Nashville")
	})

	t.Run("unknown name is an error", func(t *testing.T) {
		uc := usecase.New(memory.New(), newMockGateway())

		_, err := uc.Aliases(ctx, userID, "ghost")
		gt.Error(t, err).Is(types.ErrEntityNotFound)
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		uc := usecase.New(memory.New(), newMockGateway())

		_, err := uc.Aliases(ctx, "", "Robert")
		gt.Error(t, err)
	})
}
