package schema

// DefinitionSchema describes a workflow definition document: a map of
// service name to step list. It rejects structurally broken definitions
// before the step-level policy checks run.
func DefinitionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"additionalProperties": map[string]interface{}{
			"type":  "array",
			"items": stepSchema(),
		},
	}
}

func stepSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"id", "stepType"},
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"stepType": map[string]interface{}{
				"type": "string",
				"enum": []string{
					"text", "email", "phone", "address", "website",
					"number", "date", "file", "multiple_choice",
					"payment", "external_browser", "end_screen",
				},
			},
			"question":    map[string]interface{}{"type": "string"},
			"placeholder": map[string]interface{}{"type": "string"},
			"multiline":   map[string]interface{}{"type": "boolean"},
			"minLength":   map[string]interface{}{"type": "integer", "minimum": 0},
			"maxLength":   map[string]interface{}{"type": "integer", "minimum": 0},
			"required":    map[string]interface{}{"type": "boolean"},
			"min":         map[string]interface{}{"type": "number"},
			"max":         map[string]interface{}{"type": "number"},
			"minDate":     map[string]interface{}{"type": "string"},
			"maxDate":     map[string]interface{}{"type": "string"},
			"acceptedTypes": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"maxSize": map[string]interface{}{"type": "integer", "minimum": 0},
			"options": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"title"},
					"properties": map[string]interface{}{
						"title":       map[string]interface{}{"type": "string"},
						"description": map[string]interface{}{"type": "string"},
						"price":       map[string]interface{}{"type": "number"},
						"icon":        map[string]interface{}{"type": "string"},
					},
				},
			},
			"multiple": map[string]interface{}{"type": "boolean"},
			"paymentType": map[string]interface{}{
				"type": "string",
				"enum": []string{"fixed", "selection"},
			},
			"amount":        map[string]interface{}{"type": "number"},
			"currency":      map[string]interface{}{"type": "string"},
			"linkedStepId":  map[string]interface{}{"type": "string"},
			"description":   map[string]interface{}{"type": "string"},
			"url":           map[string]interface{}{"type": "string"},
			"buttonText":    map[string]interface{}{"type": "string"},
			"title":         map[string]interface{}{"type": "string"},
			"message":       map[string]interface{}{"type": "string"},
			"showConfetti":  map[string]interface{}{"type": "boolean"},
			"animationType": map[string]interface{}{"type": "string"},
		},
	}
}
