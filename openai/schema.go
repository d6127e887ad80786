package openai

import (
	"reflect"
	"slices"
	"strings"
)

// FuncParams builds the JSON schema parameters object for a function
// tool from a struct type. Field names come from json tags, descriptions
// from `description` tags, and fields without omitempty are required.
//
//	type weatherParams struct {
//		City string `json:"city" description:"City to look up."`
//		Unit string `json:"unit,omitempty" description:"celsius or fahrenheit"`
//	}
//	tool := FuncTool("get_weather", "Look up the weather.", FuncParams[weatherParams]())
func FuncParams[Params any]() map[string]any {
	var zero Params
	typ := reflect.TypeOf(zero)
	if typ.Kind() != reflect.Struct {
		panic("Params must be a struct")
	}
	return objectSchema(typ)
}

// objectSchema constructs a JSON schema for structs.
func objectSchema(typ reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" { // Field is explicitly ignored
			continue
		}
		parts := strings.Split(jsonTag, ",")
		fieldName := field.Name
		if parts[0] != "" {
			fieldName = parts[0]
		}

		fieldSchema := schemaForType(field.Type)
		if description := field.Tag.Get("description"); description != "" {
			fieldSchema["description"] = description
		}
		properties[fieldName] = fieldSchema
		if !slices.Contains(parts[1:], "omitempty") {
			required = append(required, fieldName)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// schemaForType maps Go data types to corresponding JSON schema
// properties consistently.
func schemaForType(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaForType(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaForType(t.Elem())}
	case reflect.Struct:
		return objectSchema(t)
	case reflect.Ptr:
		return schemaForType(t.Elem())
	default:
		return map[string]any{"type": "unknown"}
	}
}
