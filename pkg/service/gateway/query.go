package gateway

import (
	"context"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// parsedQueryResponse is the structured output from the LLM
type parsedQueryResponse struct {
	Entities           []string `json:"entities"`
	RelationshipPhrase string   `json:"relationship_phrase"`
}

// ParseQuery turns a question into entity mentions and a relationship
// phrase, with the same placeholder conventions as extraction so query
// phrasing stays comparable to stored phrasing.
func (c *client) ParseQuery(ctx context.Context, question string, user types.UserID) (*model.ParsedQuery, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, goerr.New("question is required")
	}

	raw, err := c.generateJSON(ctx, querySystemPrompt(), querySchema(), queryUserPrompt(question))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse question", goerr.V("question", question))
	}

	var resp parsedQueryResponse
	if err := unmarshalLoose(raw, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse query response", goerr.V("response", raw))
	}

	parsed := &model.ParsedQuery{
		RelationshipPhrase: strings.TrimSpace(substitutePlaceholder(resp.RelationshipPhrase, user)),
	}
	for _, entity := range resp.Entities {
		if name := strings.TrimSpace(substitutePlaceholder(entity, user)); name != "" {
			parsed.Entities = append(parsed.Entities, name)
		}
	}

	return parsed, nil
}

// querySystemPrompt creates the fixed system prompt for question analysis
func querySystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a question analysis assistant. Identify which entities a question is about and which relationship it asks for.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Write the literal token USER wherever the question refers to the asker (I, me, my, mine).\n")
	sb.WriteString("2. List entity mentions in asking order, with the entity the question is rooted at first.\n")
	sb.WriteString("3. Phrase relationship_phrase the way a stored statement would phrase it: \"who is my favorite country artist\" becomes \"favorite country artist is\".\n")
	sb.WriteString("4. Return an empty entities array when the question names no entity at all.\n")

	return sb.String()
}

// queryUserPrompt creates the user prompt carrying the raw question
func queryUserPrompt(question string) string {
	var sb strings.Builder

	sb.WriteString("## Question:\n\n")
	sb.WriteString(question)
	sb.WriteString("\n")

	return sb.String()
}

// querySchema creates the JSON schema for structured question analysis
func querySchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "QuestionAnalysis",
		Description: "Entities and relationship phrase a question asks about",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"entities": {
				Type:        gollem.TypeArray,
				Description: "Entity mentions in asking order",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeString,
				},
			},
			"relationship_phrase": {
				Type:        gollem.TypeString,
				Description: "The relationship the question asks about, phrased like a stored statement",
				Required:    true,
			},
		},
	}
}
