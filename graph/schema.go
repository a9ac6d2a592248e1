package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"swarm1.dev/core/swarmerr"
)

// graphSchemaJSON is the embedded JSON Schema for the graph file's top-level
// shape. Node-type-specific params are validated separately (ParamsFor),
// since params are a tagged variant keyed by the node's type, not a single
// fixed shape the top-level schema can express cleanly.
const graphSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "project_id", "nodes"],
  "properties": {
    "version": {"const": "1.0"},
    "project_id": {"type": "string", "minLength": 1},
    "concurrency": {"type": "integer", "minimum": 1, "maximum": 10},
    "fail_fast": {"type": "boolean"},
    "defaults": {
      "type": "object",
      "properties": {
        "retries": {
          "type": "object",
          "properties": {"max": {"type": "integer", "minimum": 0}}
        },
        "backoff_ms": {"type": "integer", "minimum": 0},
        "timeout_ms": {"type": "integer", "minimum": 0}
      }
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {
            "enum": ["server", "playwright", "lighthouse", "cvf", "agent_task", "package", "report"]
          },
          "requires": {"type": "array", "items": {"type": "string"}},
          "resources": {"type": "array", "items": {"type": "string"}},
          "params": {"type": "object"},
          "env": {"type": "object"},
          "retries": {
            "type": "object",
            "properties": {"max": {"type": "integer", "minimum": 0}}
          },
          "timeout_ms": {"type": "integer", "minimum": 0}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "array",
        "minItems": 2,
        "maxItems": 2,
        "items": {"type": "string"}
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	var doc any
	if err := json.Unmarshal([]byte(graphSchemaJSON), &doc); err != nil {
		panic(fmt.Sprintf("graph: embedded schema is invalid JSON: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("graph.json", doc); err != nil {
		panic(fmt.Sprintf("graph: failed to add schema resource: %v", err))
	}
	s, err := c.Compile("graph.json")
	if err != nil {
		panic(fmt.Sprintf("graph: failed to compile schema: %v", err))
	}
	compiledSchema = s
}

// ValidateSchema checks a decoded graph document (as produced by yaml.v3
// unmarshaling into a generic any, then re-marshaled to JSON for the
// validator, since jsonschema/v6 expects JSON-native types) against the
// embedded schema. It returns an INVALID_SCHEMA error carrying the
// path/message pairs on failure, nil otherwise.
func ValidateSchema(doc any) error {
	if err := compiledSchema.Validate(doc); err != nil {
		return swarmerr.New(swarmerr.InvalidSchema, formatValidationError(err))
	}
	return nil
}

// formatValidationError flattens a jsonschema.ValidationError tree into the
// "path: message" pairs, one per line.
func formatValidationError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var lines []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			lines = append(lines, fmt.Sprintf("%s: %s", loc, e.Error()))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(lines, "; ")
}
