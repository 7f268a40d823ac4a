// Package monitor validates serialized widget initialization payloads against
// the widget's documented contract. Validation happens when the bridge
// serializes a payload, which is the fail-fast point for caller contract
// violations: the controller itself does not validate defensively.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// initPayloadSchema is the widget's initialization contract: key, positive
// integer amount, ISO currency code, a handler slot (always written by the
// bridge), and exactly one of order_id or subscription_id. Unknown fields
// pass through untouched.
const initPayloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["key", "amount", "currency", "handler"],
  "properties": {
    "key": {"type": "string", "minLength": 1},
    "amount": {"type": "integer", "minimum": 1},
    "currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
    "handler": {"type": "string", "minLength": 1},
    "order_id": {"type": "string", "minLength": 1},
    "subscription_id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "description": {"type": "string"},
    "image": {"type": "string"},
    "prefill": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "email": {"type": "string"},
        "contact": {"type": "string"}
      }
    },
    "notes": {
      "type": "object",
      "maxProperties": 15,
      "additionalProperties": {"type": "string"}
    },
    "theme": {
      "type": "object",
      "properties": {
        "color": {"type": "string"}
      }
    }
  },
  "oneOf": [
    {"required": ["order_id"], "not": {"required": ["subscription_id"]}},
    {"required": ["subscription_id"], "not": {"required": ["order_id"]}}
  ]
}`

// ContractMonitor validates init payloads against the embedded JSON schema.
type ContractMonitor struct {
	schemaLoader gojsonschema.JSONLoader
}

// NewContractMonitor compiles the embedded schema and returns a monitor.
func NewContractMonitor() (*ContractMonitor, error) {
	schemaLoader := gojsonschema.NewStringLoader(initPayloadSchema)
	// Check the schema is valid by trying to compile it.
	if _, err := gojsonschema.NewSchema(schemaLoader); err != nil {
		return nil, fmt.Errorf("error compiling init payload schema: %w", err)
	}

	return &ContractMonitor{
		schemaLoader: schemaLoader,
	}, nil
}

// Validate validates a serialized init payload against the contract schema.
// It returns true if valid, or false and a list of validation errors if invalid.
func (cm *ContractMonitor) Validate(payload []byte) (bool, []string, error) {
	documentLoader := gojsonschema.NewBytesLoader(payload)
	result, err := gojsonschema.Validate(cm.schemaLoader, documentLoader)
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}

	if result.Valid() {
		return true, nil, nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
