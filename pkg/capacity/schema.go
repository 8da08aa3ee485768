package capacity

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const resultSchemaJSON = `{
  "type": "object",
  "required": ["idApplication", "decision"],
  "properties": {
    "eventId": {"type": "string"},
    "correlationId": {"type": "string"},
    "idApplication": {"type": "integer", "minimum": 1},
    "decision": {"type": "string", "minLength": 1},
    "observations": {"type": ["string", "null"]},
    "planPago": {"type": ["array", "null"]}
  }
}`

var resultSchema = mustCompileSchema(resultSchemaJSON)

func mustCompileSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("compile capacity result schema: %v", err))
	}
	return schema
}

// validateResult checks the shape of a capacity result. Decision values are
// not enumerated here; an unknown outcome is a domain error, not a malformed
// payload.
func validateResult(body []byte) error {
	result, err := resultSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("schema validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
