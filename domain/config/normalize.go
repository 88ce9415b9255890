package config

import (
	"scoreprep/internal/errors"
)

// fieldNameMapping maps legacy configuration field names to canonical ones
var fieldNameMapping = map[string]string{
	"expID":          "experiment_id",
	"LRmodel":        "model",
	"train":          "train_file",
	"test":           "test_file",
	"predictions":    "predictions_file",
	"feature":        "features",
	"train.lab":      "train_label_column",
	"test.lab":       "test_label_column",
	"trim.min":       "trim_min",
	"trim.max":       "trim_max",
	"scale":          "use_scaled_predictions",
	"feature.subset": "feature_subset",
}

// modelNameMapping maps legacy model names to canonical ones
var modelNameMapping = map[string]string{
	"empWt":             "LinearRegression",
	"eqWt":              "EqualWeightsLR",
	"empWtBalanced":     "RebalancedLR",
	"empWtNNLS":         "NNLR",
	"empWtDropNegLasso": "LassoFixedLambdaThenNNLR",
	"empWtLasso":        "LassoFixedLambdaThenLR",
	"empWtLassoBest":    "PositiveLassoCVThenLR",
	"lassoWtLasso":      "LassoFixedLambda",
	"lassoWtLassoBest":  "PositiveLassoCV",
}

// discontinuedModelName has no direct replacement mapping and fails with
// guidance instead of a deprecation warning
const discontinuedModelName = "empWtDropNeg"

// NormalizeFieldNames maps legacy field and model names onto their canonical
// equivalents, emitting a deprecation warning for each remapped name. The
// legacy prediction-scaling values "scale"/"raw" are converted to booleans.
func NormalizeFieldNames(raw Raw) (Raw, error) {
	normalized := make(Raw, len(raw))

	for name, value := range raw {
		canonical := name
		if mapped, ok := fieldNameMapping[name]; ok {
			canonical = mapped
			logger.Warn("The field name %q is deprecated and will be removed in a "+
				"future release, please use the new field name %q instead", name, canonical)
		}
		normalized[canonical] = value
	}

	if value, ok := normalized["use_scaled_predictions"]; ok {
		switch value {
		case "scale", true:
			normalized["use_scaled_predictions"] = true
		case "raw", false:
			normalized["use_scaled_predictions"] = false
		default:
			return nil, errors.ConfigInvalid("please use the new format to specify " +
				"prediction scaling: 'use_scaled_predictions': true/false")
		}
	}

	if model, ok := normalized["model"].(string); ok {
		if model == discontinuedModelName {
			return nil, errors.ConfigInvalid("the model name %q is no longer available, "+
				"please use the equivalent model \"NNLR\" instead", discontinuedModelName)
		}
		if canonical, ok := modelNameMapping[model]; ok {
			logger.Warn("The model name %q is deprecated and will be removed in a "+
				"future release, please use the new model name %q instead", model, canonical)
			normalized["model"] = canonical
		}
	}

	return normalized, nil
}
