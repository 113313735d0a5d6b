package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(&Config{})
	if schema.Version == "" {
		schema.Version = jsonschema.Version
	}
	schema.Title = "bundlekit configuration"
	return json.MarshalIndent(schema, "", "  ")
}
