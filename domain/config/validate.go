package config

import (
	"path/filepath"
	"regexp"

	"scoreprep/internal/errors"
)

// requiredFields lists the fields each context must specify
var requiredFields = map[Context][]string{
	ContextTrain:     {"experiment_id", "model", "train_file", "test_file"},
	ContextEvaluate:  {"experiment_id", "predictions_file", "system_score_column", "trim_min", "trim_max"},
	ContextPredict:   {"experiment_id", "experiment_dir", "input_features_file"},
	ContextCompare:   {"comparison_id", "experiment_id_old", "experiment_dir_old", "experiment_id_new", "experiment_dir_new"},
	ContextSummarize: {"summary_id", "experiment_dirs"},
}

// defaultValues is the fixed default table for optional fields. Together
// with the context's required fields it forms the closed field vocabulary.
var defaultValues = Raw{
	"id_column":                  "spkitemid",
	"description":                "",
	"description_old":            "",
	"description_new":            "",
	"train_label_column":         "sc1",
	"test_label_column":          "sc1",
	"human_score_column":         "sc1",
	"exclude_zero_scores":        true,
	"use_scaled_predictions":     false,
	"use_scaled_predictions_old": false,
	"use_scaled_predictions_new": false,
	"select_transformations":     false,
	"scale_with":                 nil,
	"sign":                       nil,
	"features":                   nil,
	"length_column":              nil,
	"second_human_score_column":  nil,
	"form_level_scores":          nil,
	"candidate_column":           nil,
	"general_sections":           "all",
	"special_sections":           nil,
	"custom_sections":            nil,
	"feature_subset_file":        nil,
	"feature_subset":             nil,
	"feature_prefix":             nil,
	"trim_min":                   nil,
	"trim_max":                   nil,
	"subgroups":                  []interface{}{},
	"section_order":              nil,
	"flag_column":                nil,
	"min_items_per_candidate":    nil,
}

// idFields are identifier-like fields used to build output filenames and
// therefore constrained in length and format
var idFields = []string{"comparison_id", "experiment_id", "summary_id"}

var whitespaceRe = regexp.MustCompile(`\s`)

// ValidateAndPopulate checks that all fields required by the context are
// present, fills defaults for unspecified optional fields, rejects
// unrecognized fields, and enforces the cross-field rules (mutual
// exclusivity, dependent fields, add-on-gated fields).
func ValidateAndPopulate(raw Raw, ctx Context, provider SubsetDefaults) (Raw, error) {
	required, ok := requiredFields[ctx]
	if !ok {
		return nil, errors.ConfigInvalid("unknown validation context %q", string(ctx))
	}

	validated := make(Raw, len(raw)+len(defaultValues))
	for name, value := range raw {
		validated[name] = value
	}

	for _, field := range required {
		if _, ok := validated[field]; !ok {
			return nil, errors.ConfigInvalid("the config file must specify '%s'", field)
		}
	}

	for field, value := range defaultValues {
		if _, ok := validated[field]; !ok {
			validated[field] = value
		}
	}

	// closed vocabulary: anything neither required nor defaulted is a typo
	for field := range validated {
		if _, ok := defaultValues[field]; ok {
			continue
		}
		if containsString(required, field) {
			continue
		}
		return nil, errors.ConfigInvalid("unrecognized field '%s' in config file", field)
	}

	// identifier fields end up in filenames, keep them short and unspaced;
	// the score-new-data context carries no reportable ids
	if ctx != ContextPredict {
		if err := checkIDFields(validated); err != nil {
			return nil, err
		}
	}

	if isSet(validated["features"]) && isSet(validated["feature_subset_file"]) {
		return nil, errors.ConfigInvalid("you cannot specify BOTH \"features\" and \"feature_subset_file\"")
	}
	if isSet(validated["features"]) && isSet(validated["feature_subset"]) {
		return nil, errors.ConfigInvalid("you cannot specify BOTH \"features\" and \"feature_subset\"")
	}

	if isSet(validated["feature_subset"]) && !isSet(validated["feature_subset_file"]) {
		if provider != nil {
			validated["feature_subset_file"] = provider.DefaultSubsetFile()
			logger.Warn("You requested feature subsets but did not specify any feature file. "+
				"The tool will use the default feature file %s",
				filepath.Base(provider.DefaultSubsetFile()))
		} else {
			return nil, errors.ConfigInvalid("if you want to use feature subsets, " +
				"you must specify a feature subset file")
		}
	}

	if isSet(validated["sign"]) && !isSet(validated["feature_subset_file"]) {
		if provider != nil {
			validated["feature_subset_file"] = provider.DefaultSubsetFile()
			logger.Warn("You specified the expected sign of correlation but did not specify "+
				"a feature subset file. The tool will use the default feature subset file %s",
				filepath.Base(provider.DefaultSubsetFile()))
		} else {
			return nil, errors.ConfigInvalid("if you want to specify the expected sign of " +
				"correlation for each feature, you must specify a feature subset file")
		}
	}

	// default sign rides along with the provider's default subset file
	if provider != nil &&
		validated["feature_subset_file"] == provider.DefaultSubsetFile() &&
		!isSet(validated["sign"]) {
		validated["sign"] = provider.DefaultSign()
	}

	if isSet(validated["min_items_per_candidate"]) && !isSet(validated["candidate_column"]) {
		return nil, errors.ConfigInvalid("if you want to filter out candidates with " +
			"responses to less than X items, you need to specify the name of the " +
			"column which contains candidate IDs")
	}

	if provider == nil && isSet(validated["special_sections"]) {
		return nil, errors.ConfigInvalid("special sections are only available " +
			"when the add-on section provider is installed")
	}

	if isSet(validated["features"]) && isSet(validated["select_transformations"]) {
		logger.Warn("You specified a feature file but also set 'select_transformations' " +
			"to true. Any transformations or signs specified in the feature file will be " +
			"overwritten by the automatically selected transformations and signs")
	}

	return validated, nil
}

// checkIDFields verifies that identifier fields contain no whitespace and
// are at most 200 characters long
func checkIDFields(raw Raw) error {
	for _, field := range idFields {
		value, ok := raw[field].(string)
		if !ok {
			continue
		}
		if len(value) > 200 {
			return errors.ConfigInvalid("%s is too long (must be <=200 characters)", field)
		}
		if whitespaceRe.MatchString(value) {
			return errors.ConfigInvalid("%s cannot contain any spaces", field)
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
