package restapi

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaValidator compiles a fixed JSON Schema once and validates decoded
// request bodies against it, per spec.md §6.1's 422 schema-error contract.
type schemaValidator struct {
	schema *jsonschema.Schema
}

// newSchemaValidator compiles schemaJSON. It panics on a malformed schema
// literal, since the schemas here are fixed program constants, not
// user input.
func newSchemaValidator(name string, schemaJSON string) *schemaValidator {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("restapi: invalid embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("restapi: adding schema resource %s: %v", name, err))
	}
	schema, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("restapi: compiling schema %s: %v", name, err))
	}
	return &schemaValidator{schema: schema}
}

// Validate checks raw (already-decoded into a generic document) against
// the compiled schema.
func (v *schemaValidator) Validate(doc any) error {
	return v.schema.Validate(doc)
}

var initializeSchema = newSchemaValidator("initialize.json", `{
	"type": "object",
	"required": ["dataset_path"],
	"properties": {
		"dataset_path": {"type": "string", "minLength": 1}
	}
}`)

var clarifySchema = newSchemaValidator("clarify.json", `{
	"type": "object",
	"properties": {
		"user_input": {"type": "string"},
		"updated_metadata": {"type": "object"}
	}
}`)

var registerAgentSchema = newSchemaValidator("register_agent.json", `{
	"type": "object",
	"required": ["name", "kind", "base_url"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"kind": {"type": "string", "enum": ["metadata", "conversion", "evaluation"]},
		"base_url": {"type": "string", "minLength": 1},
		"capabilities": {"type": "array", "items": {"type": "string"}}
	}
}`)

var routeMessageSchema = newSchemaValidator("route_message.json", `{
	"type": "object",
	"required": ["target_agent", "message_kind"],
	"properties": {
		"target_agent": {"type": "string", "minLength": 1},
		"message_kind": {"type": "string"},
		"payload": {"type": "object"}
	}
}`)
