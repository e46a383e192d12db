package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedReply is returned when the model reply is not a recipe JSON object.
var ErrMalformedReply = errors.New("malformed model reply")

const resultSchemaJSON = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title": {"type": "string"},
		"ingredients": {
			"type": ["array", "null"],
			"items": {"type": "string"}
		}
	}
}`

var resultSchema = jsonschema.MustCompileString("extraction.json", resultSchemaJSON)

// "```json" is listed first so it wins over "```" at the same position.
var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// Normalize turns a raw model reply into a Result. Markdown code fences are
// removed before the remaining text is parsed as strict JSON.
func Normalize(reply string) (Result, error) {
	clean := strings.TrimSpace(fenceReplacer.Replace(reply))
	if clean == "" {
		return Empty(), fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	var v any
	if err := json.Unmarshal([]byte(clean), &v); err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	if err := resultSchema.Validate(v); err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	var r Result
	if err := json.Unmarshal([]byte(clean), &r); err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	return r, nil
}
