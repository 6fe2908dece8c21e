package mockapi

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/five82/basket/internal/shop"
)

const (
	schemaList   = "list.json"
	schemaItem   = "item.json"
	schemaImport = "import.json"
)

var schemaSources = map[string]string{
	schemaList: `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string", "pattern": "\\S"}}
	}`,
	schemaItem: `{
		"type": "object",
		"required": ["name", "count"],
		"properties": {
			"name": {"type": "string", "pattern": "\\S"},
			"count": {"type": "number", "exclusiveMinimum": 0},
			"purchased": {"type": "boolean"}
		}
	}`,
	schemaImport: `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "pattern": "\\S"},
				"items": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["name"],
						"properties": {"name": {"type": "string", "pattern": "\\S"}}
					}
				}
			}
		}
	}`,
}

// fieldCodes maps a failing property to the error code the client expects.
var fieldCodes = map[string]map[string]string{
	schemaList:   {"name": shop.CodeListNameEmpty},
	schemaItem:   {"name": shop.CodeItemNameEmpty, "count": shop.CodeItemCountEmpty},
	schemaImport: {"name": shop.CodeListNameEmpty},
}

type validator struct {
	schemas map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	for name, src := range schemaSources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	v := &validator{schemas: make(map[string]*jsonschema.Schema, len(schemaSources))}
	for name := range schemaSources {
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// check validates body against the named schema and returns the field
// errors to report. A body that is not JSON at all is reported as a failure
// of every mapped field.
func (v *validator) check(name string, body []byte) []shop.FieldError {
	codes := fieldCodes[name]
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return allFields(codes)
	}
	err = v.schemas[name].Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return allFields(codes)
	}

	failed := map[string]bool{}
	collectFields(ve, doc, codes, failed)
	if len(failed) == 0 {
		return allFields(codes)
	}
	out := make([]shop.FieldError, 0, len(failed))
	for field := range failed {
		out = append(out, shop.FieldError{Field: field, Code: codes[field]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func collectFields(ve *jsonschema.ValidationError, doc any, codes map[string]string, failed map[string]bool) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectFields(cause, doc, codes, failed)
		}
		return
	}
	for i := len(ve.InstanceLocation) - 1; i >= 0; i-- {
		if _, ok := codes[ve.InstanceLocation[i]]; ok {
			failed[ve.InstanceLocation[i]] = true
			return
		}
	}
	// A leaf at an object without a property in its path is a missing
	// required field; find which ones are absent.
	for _, obj := range objectsAt(doc, ve.InstanceLocation) {
		for field := range codes {
			if _, ok := obj[field]; !ok {
				failed[field] = true
			}
		}
	}
}

func objectsAt(doc any, path []string) []map[string]any {
	cur := doc
	for _, part := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[part]
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	if obj, ok := cur.(map[string]any); ok {
		return []map[string]any{obj}
	}
	return nil
}

func allFields(codes map[string]string) []shop.FieldError {
	out := make([]shop.FieldError, 0, len(codes))
	for field, code := range codes {
		out = append(out, shop.FieldError{Field: field, Code: code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
