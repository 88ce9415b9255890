package pipeline

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"scoreprep/domain/feature"
	"scoreprep/domain/table"
	"scoreprep/internal"
	"scoreprep/internal/errors"

	"github.com/montanaflynn/stats"
)

var logger = internal.DefaultLogger

// fakeLabelSeed makes fabricated labels reproducible across runs
const fakeLabelSeed = 1234567890

// Default trim bounds used when labels are fabricated and no explicit bounds
// were configured
const (
	defaultFakeTrimMin = 1.0
	defaultFakeTrimMax = 10.0
)

// subgroupSentinel replaces blank subgroup values
const subgroupSentinel = "No info"

// Params configures one filtering pass over a dataset
type Params struct {
	LabelColumn       string
	IDColumn          string
	LengthColumn      string
	SecondScoreColumn string
	CandidateColumn   string

	RequestedFeatures []string
	ReservedColumns   []string

	// explicit trim bounds; nil means derive from the surviving labels
	TrimMin *float64
	TrimMax *float64

	FlagColumns map[string][]string
	Subgroups   []string

	ExcludeZeroScores   bool
	ExcludeZeroVariance bool

	// optional subset narrowing used when feature names are derived
	SubsetSpecs   *table.Table
	FeatureSubset string
	FeaturePrefix []string

	MinItemsPerCandidate int
	UseFakeLabels        bool
}

// Dataset is the analysis-ready output of one filtering pass
type Dataset struct {
	Features    table.Table // spkitemid, sc1 and the resolved feature columns
	Metadata    table.Table // spkitemid, subgroups and candidate
	Other       table.Table // spkitemid plus every unclaimed column
	Excluded    table.Table // every excluded row, tagged with exclusion_reason
	Length      table.Table // spkitemid and length, when a usable length column exists
	HumanScores table.Table // spkitemid, sc1 and sc2, when a second score exists

	TrimMin      float64
	TrimMax      float64
	FeatureNames []string
}

// ProcessTable runs the full filtering state machine over a loaded table.
// Stage order matters: each stage consumes the survivors of the previous one
// and unions its exclusions into the accumulator, so reordering stages would
// change which rows later stages see.
func ProcessTable(raw table.Table, p Params) (*Dataset, error) {
	tbl := raw.Clone()

	// stage 1: every configured role column must exist
	if err := checkRoleColumns(tbl, p); err != nil {
		return nil, err
	}

	// the id and candidate roles may share one source column; duplicate it
	// so both canonical columns stay independently populated
	idColumn, candidateColumn := p.IDColumn, p.CandidateColumn
	if candidateColumn != "" && idColumn == candidateColumn {
		if idColumn == ColumnCandidate {
			tbl.SetColumn(ColumnID, tbl.Column(ColumnCandidate))
			idColumn = ColumnID
		} else {
			tbl.SetColumn(ColumnCandidate, tbl.Column(idColumn))
			candidateColumn = ColumnCandidate
		}
	}

	RenameDefaultColumns(&tbl, p.RequestedFeatures,
		idColumn, p.LabelColumn, p.SecondScoreColumn, p.LengthColumn, "", candidateColumn)

	// stage 2: response ids must be unique
	if err := checkUniqueIDs(tbl, p.IDColumn); err != nil {
		return nil, err
	}

	// stage 3: resolve the working feature list
	featureNames := p.RequestedFeatures
	if len(featureNames) == 0 {
		featureNames = feature.GenerateNames(tbl, p.ReservedColumns,
			p.SubsetSpecs, p.FeatureSubset, p.FeaturePrefix)
	}
	if illegal := intersect(featureNames, p.ReservedColumns); len(illegal) > 0 {
		return nil, errors.SchemaError("the following reserved column names cannot be "+
			"used as feature names: %s; please rename these columns and re-run "+
			"the experiment", strings.Join(illegal, ", "))
	}

	// stage 4: subgroup columns must exist; blank values get a sentinel
	if err := checkSubgroups(&tbl, p.Subgroups); err != nil {
		return nil, err
	}

	excluded := table.New(ColumnID, ReasonColumn)

	// stage 5: flag filtering
	kept, flagged, err := FilterOnFlagColumns(tbl, p.FlagColumns)
	if err != nil {
		return nil, err
	}
	if flagged.Len() > 0 {
		excluded = excluded.OuterMerge(withReason(flagged, ReasonFlag), ColumnID)
	}

	// stages 6-7: label filtering (or fabricated labels) and trim bounds
	var trimMin, trimMax float64
	if p.UseFakeLabels {
		trimMin = boundOr(p.TrimMin, defaultFakeTrimMin)
		trimMax = boundOr(p.TrimMax, defaultFakeTrimMax)
		fabricateLabels(&kept, trimMin, trimMax)
	} else {
		var labelExcluded table.Table
		kept, labelExcluded = FilterOnColumn(kept, ColumnLabel, p.ExcludeZeroScores)
		if kept.Len() == 0 {
			return nil, errors.EmptyResult("no responses remaining after filtering out " +
				"non-numeric human scores; no further analysis can be run")
		}
		if labelExcluded.Len() > 0 {
			excluded = excluded.OuterMerge(withReason(labelExcluded, ReasonLabel), ColumnID)
		}
		labels, _ := kept.NumericColumn(ColumnLabel)
		trimMin, trimMax = resolveTrimBounds(p.TrimMin, p.TrimMax, labels)
	}

	// stage 8: per-feature numeric filtering and zero-variance pruning
	if missing := difference(featureNames, tbl.Columns); len(missing) > 0 {
		return nil, errors.SchemaError("the data does not contain columns for all "+
			"features specified in the feature file; please check for capitalization "+
			"and other spelling errors; missing features: %s", strings.Join(missing, ", "))
	}
	for _, feat := range featureNames {
		coerceColumnNumeric(&excluded, feat)
		var featExcluded table.Table
		kept, featExcluded = FilterOnColumn(kept, feat, false)
		if p.ExcludeZeroVariance && HasZeroVariance(kept, feat) {
			kept = kept.Drop(feat)
		}
		if featExcluded.Len() > 0 {
			excluded = excluded.OuterMerge(withReason(featExcluded, ReasonFeature), ColumnID)
		}
	}
	if kept.Len() == 0 {
		return nil, errors.EmptyResult("no responses remaining after filtering out " +
			"non-numeric feature values; no further analysis can be run")
	}
	surviving := make([]string, 0, len(featureNames))
	for _, feat := range featureNames {
		if kept.HasColumn(feat) {
			surviving = append(surviving, feat)
		}
	}
	// a dropped zero-variance feature is advisory, never fatal, whether it
	// was requested explicitly or derived from the data
	if omitted := difference(featureNames, surviving); len(omitted) > 0 {
		logger.Warn("The following features were excluded because their "+
			"standard deviation on the training set was 0: %s. Please exclude "+
			"these features and re-run the tool", strings.Join(omitted, ", "))
	}
	featureNames = surviving

	// stage 9: length-column sanity check
	if p.LengthColumn != "" && kept.HasColumn(ColumnLength) {
		if !lengthColumnUsable(kept) {
			logger.Warn("The %s column either has missing values or a standard "+
				"deviation <= 0; no length-based analysis will be provided and the "+
				"column will be kept under the name %s among the other columns",
				p.LengthColumn, Alias(p.LengthColumn))
			kept.RenameColumns(map[string]string{ColumnLength: Alias(p.LengthColumn)})
		}
	}

	// stage 10: candidate-count filtering
	if p.MinItemsPerCandidate > 0 {
		var candidateExcluded table.Table
		kept, candidateExcluded = SelectCandidatesWithMinItems(kept, ColumnCandidate, p.MinItemsPerCandidate)
		if kept.Len() == 0 {
			return nil, errors.EmptyResult("after filtering non-numeric scores and "+
				"non-numeric feature values there were no candidates with %d or more "+
				"responses left for analysis", p.MinItemsPerCandidate)
		}
		if candidateExcluded.Len() > 0 {
			excluded = excluded.OuterMerge(withReason(candidateExcluded, ReasonCandidateCount), ColumnID)
		}
	}

	ds := Assemble(kept, featureNames, p.Subgroups,
		p.CandidateColumn, p.LengthColumn, p.SecondScoreColumn, p.ExcludeZeroScores)
	ds.Excluded = excluded
	ds.TrimMin = trimMin
	ds.TrimMax = trimMax
	ds.FeatureNames = featureNames
	return ds, nil
}

func checkRoleColumns(tbl table.Table, p Params) error {
	required := []string{p.IDColumn, p.LabelColumn}
	for _, optional := range []string{p.LengthColumn, p.SecondScoreColumn, p.CandidateColumn} {
		if optional != "" {
			required = append(required, optional)
		}
	}
	var missing []string
	for _, column := range required {
		if !tbl.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.SchemaError("columns %s from the config file do not exist "+
			"in the data", strings.Join(missing, ", "))
	}
	return nil
}

func checkUniqueIDs(tbl table.Table, configuredName string) error {
	seen := make(map[string]bool, tbl.Len())
	for _, r := range tbl.Rows {
		id := r[ColumnID]
		if seen[id] {
			return errors.SchemaError("the data contains duplicate response IDs in "+
				"'%s'; please make sure all response IDs are unique and re-run the tool",
				configuredName)
		}
		seen[id] = true
	}
	return nil
}

func checkSubgroups(tbl *table.Table, subgroups []string) error {
	if missing := difference(subgroups, tbl.Columns); len(missing) > 0 {
		return errors.SchemaError("the data does not contain columns for all subgroups "+
			"specified in the configuration file; please check for capitalization and "+
			"other spelling errors and make sure the subgroup names do not contain "+
			"hyphens; missing subgroups: %s", strings.Join(missing, ", "))
	}
	for _, subgroup := range subgroups {
		for _, r := range tbl.Rows {
			if strings.TrimSpace(r[subgroup]) == "" {
				r[subgroup] = subgroupSentinel
			}
		}
	}
	return nil
}

// fabricateLabels overwrites the label column with integers sampled
// uniformly from [trimMin, trimMax] using a fixed seed
func fabricateLabels(tbl *table.Table, trimMin, trimMax float64) {
	logger.Info("Generating labels randomly from [%g, %g]", trimMin, trimMax)
	lo, hi := int(trimMin), int(trimMax)
	rng := rand.New(rand.NewSource(fakeLabelSeed))
	for _, r := range tbl.Rows {
		r[ColumnLabel] = strconv.Itoa(lo + rng.Intn(hi-lo+1))
	}
}

func resolveTrimBounds(givenMin, givenMax *float64, labels []float64) (float64, float64) {
	trimMin, trimMax := 0.0, 0.0
	if givenMin != nil {
		trimMin = *givenMin
	} else if v, err := stats.Min(labels); err == nil {
		trimMin = v
	}
	if givenMax != nil {
		trimMax = *givenMax
	} else if v, err := stats.Max(labels); err == nil {
		trimMax = v
	}
	return trimMin, trimMax
}

func boundOr(given *float64, fallback float64) float64 {
	if given != nil {
		return *given
	}
	return fallback
}

// coerceColumnNumeric rewrites a column of already-excluded rows in canonical
// numeric form, blanking values that do not parse, so the audit table stays
// consistent with the kept rows
func coerceColumnNumeric(tbl *table.Table, column string) {
	if tbl.Len() == 0 {
		return
	}
	tbl.AddColumn(column)
	for _, r := range tbl.Rows {
		if v, ok := table.ParseNumeric(r[column]); ok {
			r[column] = table.FormatNumeric(v)
		} else {
			r[column] = ""
		}
	}
}

// lengthColumnUsable reports whether the canonical length column is complete
// and has positive variance
func lengthColumnUsable(tbl table.Table) bool {
	values, parsed := tbl.NumericColumn(ColumnLength)
	numeric := make([]float64, 0, len(values))
	for i, v := range values {
		if !parsed[i] {
			return false
		}
		numeric = append(numeric, v)
	}
	if len(numeric) < 2 {
		return true
	}
	sd, err := stats.StandardDeviationSample(numeric)
	if err != nil {
		return false
	}
	return sd > 0
}

func intersect(a, b []string) []string {
	inB := map[string]bool{}
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if inB[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func difference(a, b []string) []string {
	inB := map[string]bool{}
	for _, s := range b {
		inB[s] = true
	}
	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
