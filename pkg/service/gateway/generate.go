package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// DescribeEntity generates the initial description for a newly seen entity
// name. Later mentions append to it instead of regenerating.
func (c *client) DescribeEntity(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", goerr.New("entity name is required")
	}

	systemPrompt := "You are a concise writer for a personal knowledge base. " +
		"Describe the named entity in one or two sentences. " +
		"If the name alone is ambiguous, describe the most likely referent. " +
		"Plain text only, no markdown."

	text, err := c.generateText(ctx, systemPrompt, fmt.Sprintf("Describe: %s", name))
	if err != nil {
		return "", goerr.Wrap(err, "failed to describe entity", goerr.V("name", name))
	}

	return text, nil
}

// DescribeRelationship elaborates a relationship label into one sentence
// about the relation type. It deliberately never sees the entity pair, so
// edges of the same type between different pairs stay comparable.
func (c *client) DescribeRelationship(ctx context.Context, label string) (string, error) {
	if strings.TrimSpace(label) == "" {
		return "", goerr.New("relationship label is required")
	}

	systemPrompt := "You are a concise writer. " +
		"Explain in one sentence what kind of connection the given relationship phrase expresses between two things. " +
		"Never name or invent specific entities. " +
		"Plain text only, no markdown."

	text, err := c.generateText(ctx, systemPrompt, fmt.Sprintf("Relationship phrase: %s", label))
	if err != nil {
		return "", goerr.Wrap(err, "failed to describe relationship", goerr.V("label", label))
	}

	return text, nil
}

// Synthesize produces the final answer from the question and the surviving
// original statements. The caller skips this entirely when no statement
// survived filtering.
func (c *client) Synthesize(ctx context.Context, question string, statements []string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", goerr.New("question is required")
	}
	if len(statements) == 0 {
		return "", goerr.New("no statements to synthesize from")
	}

	text, err := c.generateText(ctx, synthesisSystemPrompt(), synthesisUserPrompt(question, statements))
	if err != nil {
		return "", goerr.Wrap(err, "failed to synthesize answer", goerr.V("question", question))
	}

	return text, nil
}

// synthesisSystemPrompt creates the fixed system prompt for answer synthesis
func synthesisSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You answer questions strictly from the provided statements.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Use only the statements. Never invent facts.\n")
	sb.WriteString("2. Answer in one or two sentences addressed to the asker.\n")
	sb.WriteString("3. If the statements do not answer the question, say you have no record of it.\n")

	return sb.String()
}

// synthesisUserPrompt creates the user prompt with the question and the
// recorded statements
func synthesisUserPrompt(question string, statements []string) string {
	var sb strings.Builder

	sb.WriteString("## Question:\n\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	sb.WriteString("## Statements:\n\n")
	for _, statement := range statements {
		fmt.Fprintf(&sb, "- %s\n", statement)
	}

	return sb.String()
}
