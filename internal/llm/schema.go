package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MenuFunctionName is the function the model is asked to call.
const MenuFunctionName = "extract_menu"

const MenuFunctionDescription = "Record every menu item found in the document, with wine details for wines."

// BuildMenuJSONSchema returns the JSON Schema of the extract_menu arguments.
func BuildMenuJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": str}
	flag := map[string]any{"type": []any{"boolean", "null"}}
	num := map[string]any{"type": []any{"number", "string", "null"}}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"description": str,
			"price":       num,
			"category":    str,
			"kind":        str,
			"ingredients": strList,
			"allergens":   strList,
			"vegan":       flag,
			"vegetarian":  flag,
			"glutenFree":  flag,
			"dairyFree":   flag,
			"wineStyle":   str,
			"producer":    str,
			"region":      str,
			"grapes":      strList,
			"vintage":     map[string]any{"type": []any{"integer", "string", "null"}},
			"servingOptions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"size":  str,
						"price": num,
					},
					"required": []any{"size"},
				},
			},
			"foodPairings": strList,
		},
		"required": []any{"name"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"menuName": str,
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    item,
			},
		},
		"required": []any{"items"},
	}
}

var (
	menuSchemaOnce sync.Once
	menuSchema     *jsonschema.Schema
	menuSchemaErr  error
)

// ValidateMenuArguments checks a function-call payload against the menu schema.
func ValidateMenuArguments(data []byte) error {
	menuSchemaOnce.Do(func() {
		menuSchema, menuSchemaErr = compileSchema(BuildMenuJSONSchema())
	})
	if menuSchemaErr != nil {
		return menuSchemaErr
	}
	return validate(menuSchema, data)
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validate(schema, data)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
