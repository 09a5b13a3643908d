package gateway

import (
	"context"
	"regexp"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// userPlaceholder is the token the model writes for first-person references.
// The adapter substitutes the acting user after parsing, so prompts never
// carry real user identifiers.
const userPlaceholder = "USER"

var userPlaceholderPattern = regexp.MustCompile(`\b` + userPlaceholder + `\b`)

// extractionResponse is the structured output from the LLM
type extractionResponse struct {
	Fragments []extractedFragment `json:"fragments"`
}

// extractedFragment is one subject-relationship-object fragment as the model
// reports it, before placeholder substitution and attribution.
type extractedFragment struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
	IsAlias      bool   `json:"is_alias"`
	IsOpinion    bool   `json:"is_opinion"`
}

// ExtractTriples turns one raw statement into ordered fragments ready for
// ingestion. Malformed model output degrades to whichever fragments survive
// repair and normalization rather than an error.
func (c *client) ExtractTriples(ctx context.Context, statement string, user types.UserID) ([]model.Triple, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(statement) == "" {
		return nil, nil
	}

	raw, err := c.generateJSON(ctx, extractionSystemPrompt(), extractionSchema(), extractionUserPrompt(statement))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract fragments", goerr.V("statement", statement))
	}

	var resp extractionResponse
	if err := unmarshalLoose(raw, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse extraction response", goerr.V("response", raw))
	}

	return normalizeFragments(resp.Fragments, user), nil
}

// normalizeFragments turns wire fragments into domain triples: placeholder
// substitution, whitespace trimming, dropping incomplete fragments, and the
// attribution rewrite for subjective claims about third parties.
func normalizeFragments(fragments []extractedFragment, user types.UserID) []model.Triple {
	triples := make([]model.Triple, 0, len(fragments))

	for _, fragment := range fragments {
		triple := model.Triple{
			Source:       strings.TrimSpace(substitutePlaceholder(fragment.Source, user)),
			Relationship: strings.TrimSpace(substitutePlaceholder(fragment.Relationship, user)),
			Target:       strings.TrimSpace(substitutePlaceholder(fragment.Target, user)),
			IsAlias:      fragment.IsAlias,
		}

		if !triple.Complete() {
			continue
		}

		if fragment.IsOpinion && !triple.IsAlias && triple.Source != user.String() {
			triple = attributeToUser(triple, user)
		}

		triples = append(triples, triple)
	}

	return triples
}

// substitutePlaceholder replaces the first-person placeholder with the
// acting user. Word boundaries keep possessive forms intact, so
// "USER's partner" becomes "sam's partner".
func substitutePlaceholder(s string, user types.UserID) string {
	return userPlaceholderPattern.ReplaceAllLiteralString(s, user.String())
}

// attributeToUser reframes a subjective claim about a third party so the
// acting user is the source: "the food at Thai Palace" --is--> "spicy"
// becomes user --claims is spicy--> "the food at Thai Palace". First-person
// fragments never reach this rewrite.
func attributeToUser(triple model.Triple, user types.UserID) model.Triple {
	return model.Triple{
		Source:       user.String(),
		Relationship: "claims " + triple.Relationship + " " + triple.Target,
		Target:       triple.Source,
	}
}

// extractionSystemPrompt creates the fixed system prompt for fragment
// extraction
func extractionSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a knowledge extraction assistant. Split the user's statement into subject-relationship-object fragments.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Write the literal token USER wherever the statement refers to the speaker (I, me, my, mine).\n")
	sb.WriteString("2. Resolve possessive phrases into compound entity names: \"my partner\" becomes \"USER's partner\".\n")
	sb.WriteString("3. Keep relationship phrases short and in the words of the statement (\"favorite country artist is\", \"works at\").\n")
	sb.WriteString("4. Set is_alias to true only for naming statements where both sides are names of the same referent (\"A is B\", \"A is also known as B\").\n")
	sb.WriteString("5. Set is_opinion to true for subjective or descriptive claims (taste, quality, judgment), false for factual relations.\n")
	sb.WriteString("6. Preserve the order in which fragments appear in the statement.\n")
	sb.WriteString("7. If the statement contains no usable fragment, return an empty array.\n")

	return sb.String()
}

// extractionUserPrompt creates the user prompt carrying the raw statement
func extractionUserPrompt(statement string) string {
	var sb strings.Builder

	sb.WriteString("## Statement:\n\n")
	sb.WriteString(statement)
	sb.WriteString("\n")

	return sb.String()
}

// extractionSchema creates the JSON schema for structured extraction output
func extractionSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "StatementExtraction",
		Description: "Entity-relationship fragments extracted from one statement",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"fragments": {
				Type:        gollem.TypeArray,
				Description: "Fragments in the order they appear in the statement",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"source": {
							Type:        gollem.TypeString,
							Description: "Name of the entity the fragment is about",
							Required:    true,
						},
						"relationship": {
							Type:        gollem.TypeString,
							Description: "Connecting phrase between source and target",
							Required:    true,
						},
						"target": {
							Type:        gollem.TypeString,
							Description: "Name of the entity the relationship points at",
							Required:    true,
						},
						"is_alias": {
							Type:        gollem.TypeBoolean,
							Description: "True when source and target are two names for the same referent",
							Required:    true,
						},
						"is_opinion": {
							Type:        gollem.TypeBoolean,
							Description: "True when the fragment is a subjective or descriptive claim rather than a fact about the speaker",
							Required:    true,
						},
					},
				},
			},
		},
	}
}
