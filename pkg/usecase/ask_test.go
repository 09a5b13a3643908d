package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/repository/memory"
	"github.com/aletheia-lab/mnemosyne/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func createTestEntity(t *testing.T, repo *memory.Memory, userID types.UserID, name string) *model.Entity {
	t.Helper()
	entity, err := repo.Entity().Create(context.Background(), &model.Entity{
		UserID:               userID,
		Name:                 name,
		Description:          "a note about " + name,
		DescriptionEmbedding: vectorAt(0),
	})
	gt.NoError(t, err).Required()
	return entity
}

// createTestEdge inserts a label-only edge whose label embeds to labelVec,
// so its score against a query phrase at vectorAt(0) is under direct control
func createTestEdge(t *testing.T, repo *memory.Memory, userID types.UserID, source, target *model.Entity, label, statement string, labelVec []float32) *model.Relationship {
	t.Helper()
	rel, err := repo.Relationship().Create(context.Background(), &model.Relationship{
		UserID:         userID,
		SourceEntityID: source.ID,
		Label:          label,
		TargetEntityID: target.ID,
		LabelEmbedding: labelVec,
		OriginalInput:  statement,
	})
	gt.NoError(t, err).Required()
	return rel
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	userID := types.UserID("sam")

	t.Run("answers from the original statements", func(t *testing.T) {
		gw := newMockGateway()
		gw.extractFn = singleTripleExtractor(model.Triple{
			Source:       "sam",
			Relationship: "favorite country music artist is",
			Target:       "Jake Owen",
		})
		gw.parseFn = fixedParser("favorite country music artist is", "sam")

		var gotQuestion string
		var gotStatements []string
		gw.synthesizeFn = func(ctx context.Context, question string, statements []string) (string, error) {
			gotQuestion = question
			gotStatements = statements
			return "Your favorite country music artist is Jake Owen.", nil
		}

		repo := memory.New()
		uc := usecase.New(repo, gw)

		statement := "My favorite country music artist is Jake Owen"
		_, err := uc.Remember(ctx, userID, statement)
		gt.NoError(t, err).Required()

		question := "who is my favorite country music artist"
		answer, err := uc.Ask(ctx, userID, question)
		gt.NoError(t, err).Required()

		gt.Bool(t, answer.NoInformation).False()
		gt.String(t, answer.Text).Contains("Jake Owen")
		gt.Value(t, gotQuestion).Equal(question)
		gt.Array(t, gotStatements).Length(1)
		gt.Array(t, gotStatements).Has(statement)

		gt.Value(t, answer.Trace.AnchorEntity).Equal("sam")
		gt.Value(t, answer.Trace.EdgesWalked).Equal(1)
		gt.Value(t, answer.Trace.EdgesKept).Equal(1)
	})

	t.Run("question naming no entity gets the fixed answer", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = fixedParser("favorite color")
		uc := usecase.New(memory.New(), gw)

		answer, err := uc.Ask(ctx, userID, "what is nice")
		gt.NoError(t, err).Required()
		gt.Bool(t, answer.NoInformation).True()
		gt.Value(t, answer.Text).Equal(model.NoInformationMessage)
		gt.Value(t, gw.synthesizeCalls.Load()).Equal(int32(0))
	})

	t.Run("empty graph gets the fixed answer without synthesis", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = fixedParser("capital of", "Mars")
		uc := usecase.New(memory.New(), gw)

		answer, err := uc.Ask(ctx, userID, "what is the capital of Mars")
		gt.NoError(t, err).Required()
		gt.Bool(t, answer.NoInformation).True()
		gt.Value(t, answer.Text).Equal(model.NoInformationMessage)
		gt.Value(t, answer.Trace.AnchorEntity).Equal("")
		gt.Value(t, gw.synthesizeCalls.Load()).Equal(int32(0))
	})

	t.Run("unmatched mention falls back to the nearest entity", func(t *testing.T) {
		gw := newMockGateway()
		gw.extractFn = singleTripleExtractor(model.Triple{
			Source:       "sam",
			Relationship: "favorite country music artist is",
			Target:       "Jake Owen",
		})
		gw.parseFn = fixedParser("favorite country music artist is", "sammy")
		gw.registerEmbedding("sammy", vectorAt(0.05))
		gw.registerEmbedding("a note about sam", vectorAt(0.05))
		gw.registerEmbedding("a note about Jake Owen", vectorAt(1.2))

		repo := memory.New()
		uc := usecase.New(repo, gw)

		_, err := uc.Remember(ctx, userID, "My favorite country music artist is Jake Owen")
		gt.NoError(t, err).Required()

		answer, err := uc.Ask(ctx, userID, "who is sammy's favorite country music artist")
		gt.NoError(t, err).Required()
		gt.Bool(t, answer.NoInformation).False()
		gt.Value(t, answer.Trace.AnchorEntity).Equal("sam")
	})

	t.Run("edges beyond the hop bound never surface", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = fixedParser("connection", "alpha")
		gw.registerEmbedding("connection", vectorAt(0))

		repo := memory.New()
		alpha := createTestEntity(t, repo, userID, "alpha")
		beta := createTestEntity(t, repo, userID, "beta")
		gamma := createTestEntity(t, repo, userID, "gamma")

		// The two-hop edge scores far better than the one-hop edge
		createTestEdge(t, repo, userID, alpha, beta, "knows", "alpha knows beta", vectorAt(0.5))
		createTestEdge(t, repo, userID, beta, gamma, "admires", "beta admires gamma", vectorAt(0.05))

		near := usecase.New(repo, gw, usecase.WithConfig(usecase.Config{MaxHops: 1}))
		answer, err := near.Ask(ctx, userID, "who does alpha know")
		gt.NoError(t, err).Required()
		gt.Value(t, answer.Trace.EdgesWalked).Equal(1)
		gt.Array(t, answer.Trace.Statements).Length(1)
		gt.Array(t, answer.Trace.Statements).Has("alpha knows beta")

		wide := usecase.New(repo, gw, usecase.WithConfig(usecase.Config{MaxHops: 2}))
		answer, err = wide.Ask(ctx, userID, "who does alpha know")
		gt.NoError(t, err).Required()
		gt.Value(t, answer.Trace.EdgesWalked).Equal(2)
		gt.Array(t, answer.Trace.Statements).Has("beta admires gamma")
	})

	t.Run("edges outside the relevance band are dropped", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = fixedParser("likes to do", "sam")
		gw.registerEmbedding("likes to do", vectorAt(0))

		repo := memory.New()
		sam := createTestEntity(t, repo, userID, "sam")
		gym := createTestEntity(t, repo, userID, "the gym")
		yoga := createTestEntity(t, repo, userID, "yoga class")
		paperwork := createTestEntity(t, repo, userID, "paperwork")
		mondays := createTestEntity(t, repo, userID, "mondays")

		createTestEdge(t, repo, userID, sam, gym, "enjoys going to", "sam enjoys going to the gym", vectorAt(0.1))
		createTestEdge(t, repo, userID, sam, yoga, "attends", "sam attends yoga class", vectorAt(0.12))
		createTestEdge(t, repo, userID, sam, paperwork, "tolerates", "sam tolerates paperwork", vectorAt(0.5))
		createTestEdge(t, repo, userID, sam, mondays, "hates", "sam hates mondays", vectorAt(0.9))

		uc := usecase.New(repo, gw)
		answer, err := uc.Ask(ctx, userID, "what does sam like to do")
		gt.NoError(t, err).Required()

		gt.Value(t, answer.Trace.EdgesWalked).Equal(4)
		gt.Value(t, answer.Trace.EdgesKept).Equal(2)
		gt.Array(t, answer.Trace.Statements).Length(2)
		gt.Value(t, answer.Trace.Statements[0]).Equal("sam enjoys going to the gym")
		gt.Value(t, answer.Trace.Statements[1]).Equal("sam attends yoga class")
	})

	t.Run("scoring prefers the elaborated description over the label", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = fixedParser("works with", "ada")
		gw.registerEmbedding("works with", vectorAt(0))

		repo := memory.New()
		ada := createTestEntity(t, repo, userID, "ada")
		grace := createTestEntity(t, repo, userID, "grace")

		// The label alone would be beyond the ceiling; the stored
		// elaboration puts the edge well inside the band
		rel, err := repo.Relationship().Create(ctx, &model.Relationship{
			UserID:               userID,
			SourceEntityID:       ada.ID,
			Label:                "collaborates with",
			TargetEntityID:       grace.ID,
			LabelEmbedding:       vectorAt(1.5),
			Description:          "one party works together with the other",
			DescriptionEmbedding: vectorAt(0.05),
			OriginalInput:        "ada collaborates with grace",
		})
		gt.NoError(t, err).Required()
		gt.Bool(t, rel.HasDescription()).True()

		uc := usecase.New(repo, gw)
		answer, err := uc.Ask(ctx, userID, "who does ada work with")
		gt.NoError(t, err).Required()
		gt.Bool(t, answer.NoInformation).False()
		gt.Array(t, answer.Trace.Statements).Length(1)
		gt.Array(t, answer.Trace.Statements).Has("ada collaborates with grace")
	})

	t.Run("users never see each other's graphs", func(t *testing.T) {
		gw := newMockGateway()
		gw.extractFn = singleTripleExtractor(model.Triple{
			Source:       "sam",
			Relationship: "favorite country music artist is",
			Target:       "Jake Owen",
		})
		gw.parseFn = fixedParser("favorite country music artist is", "sam")

		repo := memory.New()
		uc := usecase.New(repo, gw)

		_, err := uc.Remember(ctx, userID, "My favorite country music artist is Jake Owen")
		gt.NoError(t, err).Required()

		answer, err := uc.Ask(ctx, types.UserID("other"), "who is my favorite country music artist")
		gt.NoError(t, err).Required()
		gt.Bool(t, answer.NoInformation).True()
		gt.Value(t, gw.synthesizeCalls.Load()).Equal(int32(0))
	})

	t.Run("parse failure is fatal", func(t *testing.T) {
		gw := newMockGateway()
		gw.parseFn = func(ctx context.Context, question string, user types.UserID) (*model.ParsedQuery, error) {
			return nil, errors.New("model overloaded")
		}
		uc := usecase.New(memory.New(), gw)

		_, err := uc.Ask(ctx, userID, "anything")
		gt.Error(t, err)
	})

	t.Run("synthesis failure is fatal", func(t *testing.T) {
		gw := newMockGateway()
		gw.extractFn = singleTripleExtractor(model.Triple{
			Source:       "sam",
			Relationship: "lives in",
			Target:       "Nashville",
		})
		gw.parseFn = fixedParser("lives in", "sam")
		gw.synthesizeFn = func(ctx context.Context, question string, statements []string) (string, error) {
			return "", errors.New("model overloaded")
		}

		repo := memory.New()
		uc := usecase.New(repo, gw)

		_, err := uc.Remember(ctx, userID, "I live in Nashville")
		gt.NoError(t, err).Required()

		_, err = uc.Ask(ctx, userID, "where do I live")
		gt.Error(t, err)
	})

	t.Run("blank question is rejected", func(t *testing.T) {
		uc := usecase.New(memory.New(), newMockGateway())
		_, err := uc.Ask(ctx, userID, "  ")
		gt.Error(t, err)
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		uc := usecase.New(memory.New(), newMockGateway())
		_, err := uc.Ask(ctx, "", "where do I live")
		gt.Error(t, err)
	})
}
