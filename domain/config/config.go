// Package config validates and normalizes experiment configurations. The
// configuration arrives as an already-parsed map (the comment-tolerant JSON
// syntax is handled by the caller); this package maps legacy names onto
// canonical ones, enforces the per-context field vocabulary, coerces
// string-typed lists and booleans, and produces the immutable typed
// ExperimentConfig that the pipeline consumes.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"scoreprep/domain/table"
	"scoreprep/internal"
	"scoreprep/internal/errors"
)

// Raw is a parsed configuration object before validation
type Raw map[string]interface{}

// Context identifies the tool context a configuration is validated for
type Context string

const (
	ContextTrain     Context = "train"     // build a model from train/test files
	ContextEvaluate  Context = "evaluate"  // evaluate existing predictions
	ContextPredict   Context = "predict"   // score new data with a trained model
	ContextCompare   Context = "compare"   // compare two experiments
	ContextSummarize Context = "summarize" // summarize many experiments
)

// SubsetDefaults is an optional add-on provider supplying a default feature
// subset file and default sign when the configuration requests subsets
// without naming a file.
type SubsetDefaults interface {
	DefaultSubsetFile() string
	DefaultSign() string
}

// ExperimentConfig is the validated, immutable configuration object
type ExperimentConfig struct {
	ExperimentID string
	Model        string
	TrainFile    string
	TestFile     string

	PredictionsFile   string
	SystemScoreColumn string
	InputFeaturesFile string
	ExperimentDir     string

	ComparisonID     string
	ExperimentIDOld  string
	ExperimentDirOld string
	ExperimentIDNew  string
	ExperimentDirNew string
	SummaryID        string
	ExperimentDirs   []string

	Description    string
	DescriptionOld string
	DescriptionNew string

	IDColumn               string
	TrainLabelColumn       string
	TestLabelColumn        string
	HumanScoreColumn       string
	LengthColumn           string
	SecondHumanScoreColumn string
	CandidateColumn        string

	ExcludeZeroScores       bool
	UseScaledPredictions    bool
	UseScaledPredictionsOld bool
	UseScaledPredictionsNew bool
	SelectTransformations   bool

	ScaleWith       string
	Sign            string
	Features        string // path to a feature file, or the legacy value "all"
	FormLevelScores string

	GeneralSections []string
	SpecialSections []string
	CustomSections  []string
	SectionOrder    []string

	FeatureSubsetFile string
	FeatureSubset     string
	FeaturePrefix     []string

	TrimMin *float64
	TrimMax *float64

	Subgroups            []string
	FlagColumns          map[string][]string
	MinItemsPerCandidate int
}

var logger = internal.DefaultLogger

// Normalize runs the full normalization chain on a raw configuration and
// builds the typed ExperimentConfig: field-name normalization, validation
// and population of defaults, then type coercion.
func Normalize(raw Raw, ctx Context, provider SubsetDefaults) (*ExperimentConfig, error) {
	normalized, err := NormalizeFieldNames(raw)
	if err != nil {
		return nil, err
	}
	validated, err := ValidateAndPopulate(normalized, ctx, provider)
	if err != nil {
		return nil, err
	}
	coerced, err := CoerceTypes(validated)
	if err != nil {
		return nil, err
	}
	return Build(coerced)
}

// Build maps a validated, coerced raw configuration into the typed struct
func Build(raw Raw) (*ExperimentConfig, error) {
	flags, err := CheckFlagColumns(raw["flag_column"])
	if err != nil {
		return nil, err
	}

	trimMin, err := floatField(raw, "trim_min")
	if err != nil {
		return nil, err
	}
	trimMax, err := floatField(raw, "trim_max")
	if err != nil {
		return nil, err
	}

	minItems, err := intField(raw, "min_items_per_candidate")
	if err != nil {
		return nil, err
	}

	return &ExperimentConfig{
		ExperimentID: stringField(raw, "experiment_id"),
		Model:        stringField(raw, "model"),
		TrainFile:    stringField(raw, "train_file"),
		TestFile:     stringField(raw, "test_file"),

		PredictionsFile:   stringField(raw, "predictions_file"),
		SystemScoreColumn: stringField(raw, "system_score_column"),
		InputFeaturesFile: stringField(raw, "input_features_file"),
		ExperimentDir:     stringField(raw, "experiment_dir"),

		ComparisonID:     stringField(raw, "comparison_id"),
		ExperimentIDOld:  stringField(raw, "experiment_id_old"),
		ExperimentDirOld: stringField(raw, "experiment_dir_old"),
		ExperimentIDNew:  stringField(raw, "experiment_id_new"),
		ExperimentDirNew: stringField(raw, "experiment_dir_new"),
		SummaryID:        stringField(raw, "summary_id"),
		ExperimentDirs:   listField(raw, "experiment_dirs"),

		Description:    stringField(raw, "description"),
		DescriptionOld: stringField(raw, "description_old"),
		DescriptionNew: stringField(raw, "description_new"),

		IDColumn:               stringField(raw, "id_column"),
		TrainLabelColumn:       stringField(raw, "train_label_column"),
		TestLabelColumn:        stringField(raw, "test_label_column"),
		HumanScoreColumn:       stringField(raw, "human_score_column"),
		LengthColumn:           stringField(raw, "length_column"),
		SecondHumanScoreColumn: stringField(raw, "second_human_score_column"),
		CandidateColumn:        stringField(raw, "candidate_column"),

		ExcludeZeroScores:       boolField(raw, "exclude_zero_scores"),
		UseScaledPredictions:    boolField(raw, "use_scaled_predictions"),
		UseScaledPredictionsOld: boolField(raw, "use_scaled_predictions_old"),
		UseScaledPredictionsNew: boolField(raw, "use_scaled_predictions_new"),
		SelectTransformations:   boolField(raw, "select_transformations"),

		ScaleWith:       stringField(raw, "scale_with"),
		Sign:            stringField(raw, "sign"),
		Features:        stringField(raw, "features"),
		FormLevelScores: stringField(raw, "form_level_scores"),

		GeneralSections: listField(raw, "general_sections"),
		SpecialSections: listField(raw, "special_sections"),
		CustomSections:  listField(raw, "custom_sections"),
		SectionOrder:    listField(raw, "section_order"),

		FeatureSubsetFile: stringField(raw, "feature_subset_file"),
		FeatureSubset:     stringField(raw, "feature_subset"),
		FeaturePrefix:     listField(raw, "feature_prefix"),

		TrimMin: trimMin,
		TrimMax: trimMax,

		Subgroups:            listField(raw, "subgroups"),
		FlagColumns:          flags,
		MinItemsPerCandidate: minItems,
	}, nil
}

// CheckFlagColumns normalizes the flag_column field: it must be a mapping
// from column name to an allowed value or list of allowed values. Single
// values are promoted to one-element lists with an advisory warning.
func CheckFlagColumns(value interface{}) (map[string][]string, error) {
	flags := map[string][]string{}
	if !isSet(value) {
		return flags, nil
	}

	mapping, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.ConfigInvalid("'flag_column' must be a dictionary mapping column names to allowed values")
	}

	for column, allowed := range mapping {
		if list, ok := allowed.([]interface{}); ok {
			values := make([]string, 0, len(list))
			for _, v := range list {
				values = append(values, flagValue(v))
			}
			flags[column] = values
			logger.Info("Only responses where %s equals one of the following values "+
				"will be used for training and/or evaluating the model: %s",
				column, strings.Join(values, ", "))
		} else {
			v := flagValue(allowed)
			flags[column] = []string{v}
			logger.Warn("The filtering condition %s for column %s was converted to a list. "+
				"Only responses where %s == %s will be used for training and/or "+
				"evaluating the model. You can ignore this warning if this is "+
				"the correct interpretation of your configuration settings",
				v, column, column, v)
		}
	}
	return flags, nil
}

// flagValue renders a configured flag value in its canonical cell form so
// that numeric flags compare equal regardless of formatting
func flagValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return table.FormatNumeric(val)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isSet reports whether a raw field carries a usable value. Mirrors the
// truthiness the original configuration format relied on.
func isSet(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}

func stringField(raw Raw, name string) string {
	v, ok := raw[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return table.FormatNumeric(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func boolField(raw Raw, name string) bool {
	v, ok := raw[name].(bool)
	return ok && v
}

func listField(raw Raw, name string) []string {
	switch val := raw[name].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

func floatField(raw Raw, name string) (*float64, error) {
	v, ok := raw[name]
	if !ok || !isSet(v) {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		return &val, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, errors.ConfigInvalid("field '%s' must be numeric, got %q", name, val)
		}
		return &parsed, nil
	default:
		return nil, errors.ConfigInvalid("field '%s' must be numeric", name)
	}
}

func intField(raw Raw, name string) (int, error) {
	v, ok := raw[name]
	if !ok || !isSet(v) {
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return int(val), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, errors.ConfigInvalid("field '%s' must be an integer, got %q", name, val)
		}
		return parsed, nil
	default:
		return 0, errors.ConfigInvalid("field '%s' must be an integer", name)
	}
}
