package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaText reflects v's type into JSON-schema text suitable for prompt
// injection. All struct fields are treated as required unless their json tag
// says otherwise.
func SchemaText(v any) (string, error) {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := r.Reflect(v)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	return string(data), nil
}

// formatInstructions renders the schema contract appended to the user
// prompt on structured completions.
func formatInstructions(schemaText string) string {
	return "\n\nRespond with a single JSON value matching this schema, and nothing else:\n" + schemaText
}
