package interfaces

import (
	"context"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// Gateway defines the language-model capabilities this engine consumes.
// The engine treats all of them as opaque; correctness of the model output
// is not its concern. Timeouts and retries belong to the implementation and
// the caller's request lifecycle, not to these signatures.
type Gateway interface {
	// Embed converts texts into vectors of model.EmbeddingDimension.
	// The result has one vector per input, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ExtractTriples turns a raw statement into ordered fragments with the
	// acting user substituted for first-person placeholders and
	// third-party subjective claims reattributed to the speaker. May
	// return an empty list; malformed model output degrades to a
	// best-effort partial list rather than an error.
	ExtractTriples(ctx context.Context, statement string, user types.UserID) ([]model.Triple, error)

	// ParseQuery turns a question into entity mentions and a relationship
	// phrase, using the same conventions as ExtractTriples
	ParseQuery(ctx context.Context, question string, user types.UserID) (*model.ParsedQuery, error)

	// DescribeEntity generates the initial description for a newly seen
	// entity name
	DescribeEntity(ctx context.Context, name string) (string, error)

	// DescribeRelationship elaborates a relationship label into a sentence
	// about the relation type, independent of any entity pair
	DescribeRelationship(ctx context.Context, label string) (string, error)

	// Synthesize produces the final answer from the question and the
	// surviving original statements
	Synthesize(ctx context.Context, question string, statements []string) (string, error)
}
