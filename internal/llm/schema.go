package llm

// BuildGapJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map. We send it to the model as a structured output constraint and also use
// it locally to validate the response after normalization.
func BuildGapJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":           map[string]any{"type": "string", "minLength": 1},
			"description":     map[string]any{"type": "string", "minLength": 1},
			"item":            map[string]any{"type": "string", "minLength": 1},
			"participants":    map[string]any{"type": "string", "minLength": 1},
			"amount_increase": decimalProp(),
		},
		"required": []string{"title", "description", "item", "participants", "amount_increase"},
	}
}

// BuildAlarmJSONSchema returns the compliance-audit output schema.
// date_time is the only nullable field; the summary must always be present.
func BuildAlarmJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"date_time": nullableDateProp(),
			"summary":   map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"summary"},
	}
}

// BuildReferencesJSONSchema returns the missing-reference output schema.
// The references array may legitimately be empty.
func BuildReferencesJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"references": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						// filename with a dotted extension, e.g. invoice_2024.pdf
						"attachment_name": map[string]any{
							"type":    "string",
							"pattern": `\.[A-Za-z0-9]{1,5}$`,
						},
						"message_date": nullableDateProp(),
					},
					"required": []string{"attachment_name"},
				},
			},
		},
		"required": []string{"references"},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d+(\.\d{1,2})?$`, // non-negative; "0.00" is the no-discrepancy sentinel
	}
}

func nullableDateProp() map[string]any {
	return map[string]any{
		"type": []string{"string", "null"},
	}
}
