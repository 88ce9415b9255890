package config

import (
	"regexp"
	"strings"

	"scoreprep/internal/errors"
)

// listFields can be given as a single comma-delimited string and are
// normalized to ordered lists
var listFields = []string{
	"feature_prefix",
	"general_sections",
	"special_sections",
	"custom_sections",
	"subgroups",
	"section_order",
	"experiment_dirs",
}

// booleanFields must end up as booleans; string forms are matched
// case-insensitively against true/false
var booleanFields = []string{
	"exclude_zero_scores",
	"use_scaled_predictions",
	"use_scaled_predictions_old",
	"use_scaled_predictions_new",
	"select_transformations",
}

var boolRe = regexp.MustCompile(`(?i)^(true|false)$`)

// CoerceTypes converts designated string-typed fields to lists (splitting on
// commas and trimming each item) and designated fields to booleans. Values
// already in the target type pass through unchanged.
func CoerceTypes(raw Raw) (Raw, error) {
	coerced := make(Raw, len(raw))
	for name, value := range raw {
		coerced[name] = value
	}

	for _, field := range listFields {
		value, ok := coerced[field]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case []interface{}, []string:
			// already a list
		case string:
			parts := strings.Split(v, ",")
			items := make([]string, 0, len(parts))
			for _, part := range parts {
				items = append(items, strings.TrimSpace(part))
			}
			coerced[field] = items
		default:
			return nil, errors.ConfigInvalid("field %s must be a list or a comma-delimited string", field)
		}
	}

	for _, field := range booleanFields {
		value, ok := coerced[field]
		if !ok || value == nil {
			continue
		}
		if _, isBool := value.(bool); isBool {
			continue
		}
		given := strings.TrimSpace(stringField(coerced, field))
		if !boolRe.MatchString(given) {
			return nil, errors.ConfigInvalid("field %s can only be set to true or false", field)
		}
		coerced[field] = strings.EqualFold(given, "true")
	}

	return coerced, nil
}
