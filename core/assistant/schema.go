package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// quizSchema is the output format requested from the provider. Strict
// structured-output modes need every object closed and every field required.
var quizSchema = &Schema{
	Name:        "article-quiz",
	Description: "Three multiple-choice questions about an article.",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"question", "options", "answer"},
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"answer": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// acceptedQuizSchema is what a reply must satisfy to be returned: a JSON
// object with a "questions" array. Anything else in it is passed through.
var acceptedQuizSchema = &Schema{
	Name:        "article-quiz-reply",
	Description: "A JSON object holding a questions array.",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{"type": "array"},
		},
	},
}

// compiled schemas by name
var schemaCache sync.Map

// ValidateJSON parses raw and checks it against schema.
func ValidateJSON(schema *Schema, raw []byte) (any, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "invalid JSON")
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, errors.Wrap(err, "schema validation failed")
	}
	return parsed, nil
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// the compiler wants plain decoded JSON values
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling schema definition")
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, errors.Wrap(err, "parsing schema definition")
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, errors.Wrapf(err, "adding schema %q", schema.Name)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling schema %q", schema.Name)
	}
	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
