// Package schema implements the argument validator of spec.md §4.5: given
// a raw JSON object and a declared schema, produce either a typed
// argument map or a validation error naming the first offending field.
//
// The supported keyword subset (type, properties, required, items, enum,
// default, description) is hand-written rather than delegated to a
// general JSON-Schema library: the pack's JSON-Schema packages
// (google/jsonschema-go, santhosh-tekuri/jsonschema) show up only as
// transitive dependencies of other tooling across the retrieved repos
// and are never actually invoked by any of them, so adopting one here
// would be speculative rather than grounded. Every pack repo that
// validates request shapes (contextd's config loader, JamesPrial's
// handler param decoding) does so by hand over a decoded map, which is
// the idiom this package follows.
package schema

import (
	"fmt"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
)

// Schema is a JSON-Schema-shaped declaration using the subset spec.md
// §4.5 names. Nested object/array schemas reuse the same type.
type Schema struct {
	Type        string             `json:"type"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Default     any                `json:"default,omitempty"`
	Description string             `json:"description,omitempty"`
}

// ToMap renders the schema as a plain map for inclusion in a tool
// descriptor's InputSchema, which travels over the wire as untyped JSON.
func (s *Schema) ToMap() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = s.Type
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, prop := range s.Properties {
			props[name] = prop.ToMap()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = s.Items.ToMap()
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Default != nil {
		out["default"] = s.Default
	}
	return out
}

// Validate checks raw against schema, returning a new map with defaults
// applied for any missing optional field, and tolerating (dropping)
// properties not declared in the schema. The first offending field is
// reported; validation stops there rather than accumulating every error.
func Validate(raw map[string]any, s *Schema) (map[string]any, error) {
	if s == nil {
		return raw, nil
	}
	if s.Type != "" && s.Type != "object" {
		return nil, fieldError("", "root schema must declare type \"object\"")
	}

	out := map[string]any{}
	for _, name := range s.Required {
		if _, ok := raw[name]; !ok {
			return nil, fieldError(name, "required field is missing")
		}
	}

	for name, propSchema := range s.Properties {
		val, present := raw[name]
		if !present {
			if propSchema.Default != nil {
				out[name] = propSchema.Default
			}
			continue
		}
		coerced, err := validateValue(name, val, propSchema)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}

	return out, nil
}

func validateValue(field string, val any, s *Schema) (any, error) {
	if s == nil {
		return val, nil
	}
	if err := checkType(field, val, s.Type); err != nil {
		return nil, err
	}
	if len(s.Enum) > 0 && !inEnum(val, s.Enum) {
		return nil, fieldError(field, fmt.Sprintf("value %v is not one of the allowed values", val))
	}
	if s.Type == "array" && s.Items != nil {
		arr, ok := val.([]any)
		if !ok {
			return nil, fieldError(field, "expected an array")
		}
		out := make([]any, len(arr))
		for i, elem := range arr {
			coerced, err := validateValue(fmt.Sprintf("%s[%d]", field, i), elem, s.Items)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	}
	if s.Type == "object" && len(s.Properties) > 0 {
		nested, ok := val.(map[string]any)
		if !ok {
			return nil, fieldError(field, "expected an object")
		}
		return Validate(nested, s)
	}
	return val, nil
}

func checkType(field string, val any, declared string) error {
	if declared == "" {
		return nil
	}
	ok := false
	switch declared {
	case "string":
		_, ok = val.(string)
	case "number":
		switch val.(type) {
		case float64, int, int64:
			ok = true
		}
	case "integer":
		switch v := val.(type) {
		case int, int64:
			ok = true
		case float64:
			ok = v == float64(int64(v))
		}
	case "boolean":
		_, ok = val.(bool)
	case "array":
		_, ok = val.([]any)
	case "object":
		_, ok = val.(map[string]any)
	default:
		ok = true // unrecognized declared types are tolerated, not enforced
	}
	if !ok {
		return fieldError(field, fmt.Sprintf("expected type %q", declared))
	}
	return nil
}

func inEnum(val any, enum []any) bool {
	for _, candidate := range enum {
		if candidate == val {
			return true
		}
	}
	return false
}

func fieldError(field, reason string) error {
	return mcperr.New("schema.validate", mcperr.ErrValidation).With("field", field).With("reason", reason)
}
