package tool

import (
	"encoding/json"
	"errors"
	"fmt"
)

// validateParams checks argument JSON against a parameters schema as
// produced by openai.FuncParams. Extra fields are ignored; missing
// required fields and type mismatches are errors.
func validateParams(schema map[string]any, arguments json.RawMessage) error {
	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return errors.New("schema error: properties must be a map")
	}
	required, _ := schema["required"].([]string)

	var data map[string]any
	if err := json.Unmarshal(arguments, &data); err != nil {
		return errors.New("invalid JSON format")
	}

	for key, value := range data {
		fieldSchema, found := properties[key]
		if !found {
			continue // Ignoring extra fields
		}
		if err := validateField(fieldSchema, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	for _, field := range required {
		if _, exists := data[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	return nil
}

// validateField checks a single decoded value against its schema.
func validateField(fieldSchema any, data any) error {
	spec, ok := fieldSchema.(map[string]any)
	if !ok {
		return errors.New("schema error: field schema must be a map")
	}

	dataType, ok := spec["type"].(string)
	if !ok {
		return errors.New("schema error: missing type specification")
	}

	switch dataType {
	case "integer":
		num, ok := data.(float64)
		if !ok || num != float64(int(num)) {
			return fmt.Errorf("type mismatch: expected integer, got %T", data)
		}
	case "number":
		if _, ok := data.(float64); !ok {
			return fmt.Errorf("type mismatch: expected number, got %T", data)
		}
	case "string":
		if _, ok := data.(string); !ok {
			return fmt.Errorf("type mismatch: expected string, got %T", data)
		}
	case "boolean":
		if _, ok := data.(bool); !ok {
			return fmt.Errorf("type mismatch: expected boolean, got %T", data)
		}
	case "array":
		items, ok := data.([]any)
		if !ok {
			return fmt.Errorf("type mismatch: expected array, got %T", data)
		}
		itemSchema, ok := spec["items"].(map[string]any)
		if !ok {
			return errors.New("schema error: missing item schema for array")
		}
		for _, item := range items {
			if err := validateField(itemSchema, item); err != nil {
				return err
			}
		}
	case "object":
		properties, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("type mismatch: expected object, got %T", data)
		}
		nested, err := json.Marshal(properties)
		if err != nil {
			return errors.New("failed to marshal object data for validation")
		}
		return validateParams(spec, nested)
	default:
		return fmt.Errorf("unsupported type: %s", dataType)
	}
	return nil
}
