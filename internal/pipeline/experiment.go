package pipeline

import (
	"scoreprep/adapters/tabfile"
	"scoreprep/domain/config"
	"scoreprep/domain/feature"
	"scoreprep/domain/table"
	"scoreprep/internal/errors"
	"scoreprep/internal/locate"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// baseReservedColumns can never be used as feature names, independent of the
// configuration
var baseReservedColumns = []string{
	"spkitemid", "spkitemlab", "itemType", "r1", "r2",
	"score", "sc", "sc1", "sc2", "adj", "length", "candidate",
}

// legacyAllFeatures is the deprecated sentinel that used to request
// automatic feature selection
const legacyAllFeatures = "all"

// fakeLabelColumn requests fabricated labels instead of a real label column
const fakeLabelColumn = "fake"

// ExperimentData holds the fully filtered training and evaluation datasets
// along with the resolved feature specifications and trim bounds
type ExperimentData struct {
	RunID        string
	ExperimentID string

	Train *Dataset
	Test  *Dataset

	FeatureSpecs []feature.Spec
	FeatureNames []string

	TrainFile string
	TestFile  string

	TrimMin float64
	TrimMax float64
}

// LoadExperiment loads, filters, and assembles the training and evaluation
// datasets for a validated configuration. The evaluation pass reuses the trim
// bounds resolved on the training pass, unmodified. configDir is the
// directory of the configuration file, used to resolve relative paths.
func LoadExperiment(cfg *config.ExperimentConfig, configDir string) (*ExperimentData, error) {
	runID := uuid.NewString()
	logger.Info("[%s] Loading experiment %s", runID, cfg.ExperimentID)

	if cfg.SecondHumanScoreColumn != "" && cfg.TestLabelColumn == cfg.SecondHumanScoreColumn {
		return nil, errors.ConfigInvalid("'test_label_column' and 'second_human_score_column' " +
			"cannot have the same value")
	}

	if cfg.ExcludeZeroScores && cfg.TrimMin != nil && *cfg.TrimMin == 0 {
		logger.Warn("'exclude_zero_scores' is set to true but 'trim_min' is set to 0; " +
			"this may cause unexpected behavior")
	}

	featureFile := cfg.Features
	if featureFile == legacyAllFeatures {
		logger.Warn("The use of \"all\" instead of a path to the feature file is deprecated " +
			"and will be removed in a future release; you can achieve the same goal by not " +
			"specifying any feature file")
		featureFile = ""
	}

	// feature subset file, when requested, must resolve and validate
	var subsetSpecs *table.Table
	if cfg.FeatureSubsetFile != "" {
		location, ok := locate.File(cfg.FeatureSubsetFile, configDir)
		if !ok {
			return nil, errors.FileNotFound(cfg.FeatureSubsetFile)
		}
		specs, err := tabfile.ReadDataFile(location)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read feature subset file %s", location)
		}
		if err := feature.CheckSubsetFile(specs, cfg.FeatureSubset, cfg.Sign); err != nil {
			return nil, err
		}
		subsetSpecs = &specs
	}

	// explicit feature file, when given, supplies the requested feature list
	var requestedFeatures []string
	var fileSpecs []feature.Spec
	if featureFile != "" {
		location, ok := locate.File(featureFile, configDir)
		if !ok {
			return nil, errors.FileNotFound(featureFile)
		}
		logger.Info("[%s] Reading feature file: %s", runID, location)
		specs, err := tabfile.ReadSpecFile(location)
		if err != nil {
			return nil, err
		}
		fileSpecs = specs
		for _, s := range specs {
			requestedFeatures = append(requestedFeatures, s.Name)
		}
	}

	if cfg.LengthColumn != "" && containsName(requestedFeatures, cfg.LengthColumn) {
		return nil, errors.ConfigInvalid("the value of 'length_column' ('%s') cannot be "+
			"used as a model feature", cfg.LengthColumn)
	}
	if cfg.SecondHumanScoreColumn != "" && containsName(requestedFeatures, cfg.SecondHumanScoreColumn) {
		return nil, errors.ConfigInvalid("the value of 'second_human_score_column' ('%s') "+
			"cannot be used as a model feature", cfg.SecondHumanScoreColumn)
	}

	reserved := reservedColumns(cfg)

	trainLocation, ok := locate.File(cfg.TrainFile, configDir)
	if !ok {
		return nil, errors.FileNotFound(cfg.TrainFile)
	}
	testLocation, ok := locate.File(cfg.TestFile, configDir)
	if !ok {
		return nil, errors.FileNotFound(cfg.TestFile)
	}

	// read both data files up front; the filtering passes themselves stay
	// strictly ordered because evaluation reuses the training trim bounds
	sameFile := trainLocation == testLocation
	var trainTable, testTable table.Table
	g := new(errgroup.Group)
	g.Go(func() error {
		t, err := tabfile.ReadDataFile(trainLocation)
		trainTable = t
		return err
	})
	if !sameFile {
		g.Go(func() error {
			t, err := tabfile.ReadDataFile(testLocation)
			testTable = t
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to read experiment data")
	}

	logger.Info("[%s] Processing training data: %s", runID, trainLocation)
	train, err := ProcessTable(trainTable, Params{
		LabelColumn:          cfg.TrainLabelColumn,
		IDColumn:             cfg.IDColumn,
		LengthColumn:         cfg.LengthColumn,
		CandidateColumn:      cfg.CandidateColumn,
		RequestedFeatures:    requestedFeatures,
		ReservedColumns:      reserved,
		TrimMin:              cfg.TrimMin,
		TrimMax:              cfg.TrimMax,
		FlagColumns:          cfg.FlagColumns,
		Subgroups:            cfg.Subgroups,
		ExcludeZeroScores:    cfg.ExcludeZeroScores,
		ExcludeZeroVariance:  true,
		SubsetSpecs:          subsetSpecs,
		FeatureSubset:        cfg.FeatureSubset,
		FeaturePrefix:        cfg.FeaturePrefix,
		MinItemsPerCandidate: cfg.MinItemsPerCandidate,
		UseFakeLabels:        cfg.TrainLabelColumn == fakeLabelColumn,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to process training data")
	}

	specs := resolveSpecs(fileSpecs, train.FeatureNames)

	var test *Dataset
	if sameFile && cfg.TrainLabelColumn == cfg.TestLabelColumn {
		logger.Warn("The same data file and label column are used for both training and " +
			"evaluating the model; no second score analysis will be performed, even if requested")
		reused := *train
		reused.HumanScores = table.Table{}
		test = &reused
	} else {
		logger.Info("[%s] Processing evaluation data: %s", runID, testLocation)
		if sameFile {
			testTable = trainTable
		}
		test, err = ProcessTable(testTable, Params{
			LabelColumn:          cfg.TestLabelColumn,
			IDColumn:             cfg.IDColumn,
			SecondScoreColumn:    cfg.SecondHumanScoreColumn,
			CandidateColumn:      cfg.CandidateColumn,
			RequestedFeatures:    train.FeatureNames,
			ReservedColumns:      reserved,
			TrimMin:              &train.TrimMin,
			TrimMax:              &train.TrimMax,
			FlagColumns:          cfg.FlagColumns,
			Subgroups:            cfg.Subgroups,
			ExcludeZeroScores:    cfg.ExcludeZeroScores,
			ExcludeZeroVariance:  false,
			MinItemsPerCandidate: cfg.MinItemsPerCandidate,
			UseFakeLabels:        cfg.TestLabelColumn == fakeLabelColumn,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to process evaluation data")
		}
	}

	logger.Info("[%s] Experiment loaded: %d training and %d evaluation responses, %d features",
		runID, train.Features.Len(), test.Features.Len(), len(train.FeatureNames))

	return &ExperimentData{
		RunID:        runID,
		ExperimentID: cfg.ExperimentID,
		Train:        train,
		Test:         test,
		FeatureSpecs: specs,
		FeatureNames: train.FeatureNames,
		TrainFile:    trainLocation,
		TestFile:     testLocation,
		TrimMin:      train.TrimMin,
		TrimMax:      train.TrimMax,
	}, nil
}

// resolveSpecs keeps the file-supplied sign and transform for every feature
// that survived filtering, and falls back to defaults for derived names
func resolveSpecs(fileSpecs []feature.Spec, surviving []string) []feature.Spec {
	if len(fileSpecs) == 0 {
		return feature.DefaultSpecs(surviving)
	}
	keep := map[string]bool{}
	for _, name := range surviving {
		keep[name] = true
	}
	out := make([]feature.Spec, 0, len(surviving))
	for _, s := range fileSpecs {
		if keep[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// reservedColumns combines the fixed reserved vocabulary with every
// configured role, subgroup and flag column name
func reservedColumns(cfg *config.ExperimentConfig) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range baseReservedColumns {
		add(name)
	}
	add(cfg.IDColumn)
	add(cfg.TrainLabelColumn)
	add(cfg.TestLabelColumn)
	add(cfg.LengthColumn)
	add(cfg.SecondHumanScoreColumn)
	add(cfg.CandidateColumn)
	for _, name := range cfg.Subgroups {
		add(name)
	}
	for name := range cfg.FlagColumns {
		add(name)
	}
	return out
}

func containsName(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}
