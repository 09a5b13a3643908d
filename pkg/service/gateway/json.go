package gateway

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/m-mizutani/goerr/v2"
)

// unmarshalLoose parses model-produced JSON with fallbacks: direct parse,
// then double-encoded string, then repair of malformed output. Language
// models wrap or mangle JSON often enough that a strict parse alone would
// fail whole ingestion batches.
func unmarshalLoose(input string, out any) error {
	input = stripCodeFence(strings.TrimSpace(input))

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	// Some models double-encode: a JSON string whose content is the JSON
	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return goerr.Wrap(err, "failed to repair model JSON", goerr.V("input", input))
	}

	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return goerr.Wrap(err, "failed to parse model JSON after repair",
			goerr.V("input", input),
			goerr.V("repaired", repaired))
	}

	return nil
}

// stripCodeFence removes a markdown code fence when the model wrapped its
// output in one
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
