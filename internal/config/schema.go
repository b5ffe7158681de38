package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// overrideSchema constrains a JSON weight/ignore-set override document.
// ValidateOverrideJSON checks a document against it with gojsonschema;
// Load does not read, validate or merge such a document.
const overrideSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "ranking": {
      "type": "object",
      "properties": {
        "weights": {
          "type": "object",
          "additionalProperties": {"type": "number", "minimum": 0}
        }
      }
    },
    "ignore_paths": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

// ValidateOverrideJSON checks a raw JSON document (the contents of a
// user-supplied override file) against overrideSchema and returns a
// combined error describing every violation found.
func ValidateOverrideJSON(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(overrideSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		messages = append(messages, resultErr.String())
	}

	return fmt.Errorf("config override is invalid: %s", strings.Join(messages, "; "))
}
