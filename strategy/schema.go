package strategy

import (
	"fmt"

	"github.com/nhb-labs/agentic-wallet/apperr"
)

// FieldType is the type tag of a strategy parameter's schema entry.
type FieldType string

const (
	FieldNumber     FieldType = "number"
	FieldString     FieldType = "string"
	FieldBoolean    FieldType = "boolean"
	FieldStringList FieldType = "stringList"
)

// ParamField describes one parameter a strategy accepts: its type,
// optional numeric bounds, whether it is required, and a default value
// used when the caller omits it.
type ParamField struct {
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Type        FieldType   `json:"type"`
	Required    bool        `json:"required"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

// validateParams coerces params against a field schema, applying defaults
// for missing optional fields and rejecting out-of-range or wrong-type
// required fields. Fields present in params but not declared in the schema
// are preserved, not rejected, per the registry's "soft unknown fields"
// contract.
func validateParams(fields []ParamField, params map[string]interface{}) (map[string]interface{}, error) {
	normalized := make(map[string]interface{}, len(params))
	for k, v := range params {
		normalized[k] = v
	}

	for _, field := range fields {
		raw, present := normalized[field.Key]
		if !present {
			if field.Required {
				return nil, apperr.Validation("missing required param %q", field.Key)
			}
			if field.Default != nil {
				normalized[field.Key] = field.Default
			}
			continue
		}
		coerced, err := coerceField(field, raw)
		if err != nil {
			if field.Required {
				return nil, err
			}
			normalized[field.Key] = field.Default
			continue
		}
		normalized[field.Key] = coerced
	}
	return normalized, nil
}

func coerceField(field ParamField, raw interface{}) (interface{}, error) {
	switch field.Type {
	case FieldNumber:
		n, ok := asFloat(raw)
		if !ok {
			return nil, apperr.Validation("param %q must be a number", field.Key)
		}
		if field.Min != nil && n < *field.Min {
			return nil, apperr.Validation("param %q below minimum %v", field.Key, *field.Min)
		}
		if field.Max != nil && n > *field.Max {
			return nil, apperr.Validation("param %q above maximum %v", field.Key, *field.Max)
		}
		return n, nil
	case FieldString:
		s, ok := raw.(string)
		if !ok {
			return nil, apperr.Validation("param %q must be a string", field.Key)
		}
		return s, nil
	case FieldBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, apperr.Validation("param %q must be a boolean", field.Key)
		}
		return b, nil
	case FieldStringList:
		list, ok := raw.([]string)
		if ok {
			return list, nil
		}
		rawList, ok := raw.([]interface{})
		if !ok {
			return nil, apperr.Validation("param %q must be a list of strings", field.Key)
		}
		out := make([]string, 0, len(rawList))
		for _, item := range rawList {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.Validation("param %q must contain only strings", field.Key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("strategy: unknown field type %q", field.Type)
	}
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
