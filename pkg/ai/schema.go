package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const structureSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question_number", "max_marks"],
        "properties": {
          "question_number": {"type": ["string", "integer"]},
          "max_marks": {"type": "number", "minimum": 0},
          "text": {"type": "string"},
          "type": {"type": "string"}
        }
      }
    }
  }
}`

const keySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["answers"],
  "properties": {
    "answers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question_number", "expected_answer"],
        "properties": {
          "question_number": {"type": ["string", "integer"]},
          "expected_answer": {"type": "string"},
          "rubric": {"type": "string"}
        }
      }
    }
  }
}`

const answersSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["answers"],
  "properties": {
    "answers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question_number", "answer"],
        "properties": {
          "question_number": {"type": ["string", "integer"]},
          "answer": {"type": "string"}
        }
      }
    }
  }
}`

const gradeSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["total_score", "results"],
  "properties": {
    "total_score": {"type": "number"},
    "remarks": {"type": "string"},
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question_number", "score"],
        "properties": {
          "question_number": {"type": ["string", "integer"]},
          "score": {"type": "number"},
          "feedback": {"type": "string"}
        }
      }
    }
  }
}`

var (
	structureSchema = jsonschema.MustCompileString("structure.schema.json", structureSchemaJSON)
	keySchema       = jsonschema.MustCompileString("key.schema.json", keySchemaJSON)
	answersSchema   = jsonschema.MustCompileString("answers.schema.json", answersSchemaJSON)
	gradeSchema     = jsonschema.MustCompileString("grade.schema.json", gradeSchemaJSON)
)

// validateJSON strips markdown fences from a model reply and checks it against schema.
func validateJSON(schema *jsonschema.Schema, content string) ([]byte, error) {
	content = stripCodeFences(content)
	if content == "" {
		return nil, fmt.Errorf("empty model response")
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("model response is not JSON: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("model response violates %s: %w", schema.Location, err)
	}

	return []byte(content), nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if newline := strings.Index(s, "\n"); newline >= 0 {
		s = s[newline+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
