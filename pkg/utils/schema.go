package utils

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// InlineSchema reflects v into a JSON schema with every definition inlined,
// so the document can be embedded in forms without resolving $ref.
func InlineSchema(v any) (string, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}

	schema, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return "", err
	}

	return string(schema), nil
}
