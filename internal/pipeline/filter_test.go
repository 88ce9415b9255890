package pipeline

import (
	"testing"

	"scoreprep/domain/table"
	"scoreprep/internal/errors"
)

func TestFilterOnFlagColumns(t *testing.T) {
	tbl := table.New("spkitemid", "advisory")
	tbl.AppendRow(table.Row{"spkitemid": "001", "advisory": "0"})
	tbl.AppendRow(table.Row{"spkitemid": "002", "advisory": "1"})
	tbl.AppendRow(table.Row{"spkitemid": "003", "advisory": "0.0"})

	kept, excluded, err := FilterOnFlagColumns(tbl, map[string][]string{"advisory": {"0"}})
	if err != nil {
		t.Fatalf("FilterOnFlagColumns failed: %v", err)
	}

	// "0.0" matches the allowed value 0 numerically
	if kept.Len() != 2 {
		t.Errorf("Expected 2 kept rows, got %d", kept.Len())
	}
	if excluded.Len() != 1 || excluded.Rows[0]["spkitemid"] != "002" {
		t.Errorf("Expected row 002 to be excluded, got %v", excluded.Rows)
	}
}

func TestFilterOnFlagColumns_MissingColumn(t *testing.T) {
	tbl := table.New("spkitemid")
	tbl.AppendRow(table.Row{"spkitemid": "001"})

	_, _, err := FilterOnFlagColumns(tbl, map[string][]string{"advisory": {"0"}})
	if err == nil {
		t.Fatal("Expected an error for a missing flag column")
	}
	if errors.GetCode(err) != errors.CodeSchemaError {
		t.Errorf("Expected SCHEMA_ERROR, got %s", errors.GetCode(err))
	}
}

func TestFilterOnColumn_LabelScenario(t *testing.T) {
	tbl := table.New("spkitemid", "sc1")
	for i, label := range []string{"3", "0", "bad", "5"} {
		tbl.AppendRow(table.Row{"spkitemid": string(rune('a' + i)), "sc1": label})
	}

	kept, excluded := FilterOnColumn(tbl, "sc1", true)

	if kept.Len() != 2 {
		t.Fatalf("Expected kept labels [3 5], got %v", kept.Rows)
	}
	if kept.Rows[0]["sc1"] != "3" || kept.Rows[1]["sc1"] != "5" {
		t.Errorf("Unexpected kept labels: %v", kept.Rows)
	}
	if excluded.Len() != 2 {
		t.Errorf("Expected the 0 and non-numeric rows to be excluded, got %v", excluded.Rows)
	}
}

func TestFilterOnColumn_ZerosKeptWithoutExclusion(t *testing.T) {
	tbl := table.New("spkitemid", "sc1")
	tbl.AppendRow(table.Row{"spkitemid": "a", "sc1": "0"})
	tbl.AppendRow(table.Row{"spkitemid": "b", "sc1": "2"})

	kept, excluded := FilterOnColumn(tbl, "sc1", false)

	if kept.Len() != 2 || excluded.Len() != 0 {
		t.Errorf("Expected zeros to survive when zero exclusion is off, got %v", excluded.Rows)
	}
}

func TestFilterOnColumn_CanonicalRewrite(t *testing.T) {
	tbl := table.New("spkitemid", "f1")
	tbl.AppendRow(table.Row{"spkitemid": "a", "f1": "2.50"})
	tbl.AppendRow(table.Row{"spkitemid": "b", "f1": " 3 "})

	kept, _ := FilterOnColumn(tbl, "f1", false)

	if kept.Rows[0]["f1"] != "2.5" {
		t.Errorf("Expected canonical numeric form 2.5, got %q", kept.Rows[0]["f1"])
	}
	if kept.Rows[1]["f1"] != "3" {
		t.Errorf("Expected canonical numeric form 3, got %q", kept.Rows[1]["f1"])
	}
}

func TestHasZeroVariance(t *testing.T) {
	constant := table.New("f1")
	varying := table.New("f1")
	single := table.New("f1")
	for _, v := range []string{"2", "2", "2"} {
		constant.AppendRow(table.Row{"f1": v})
	}
	for _, v := range []string{"2", "3", "4"} {
		varying.AppendRow(table.Row{"f1": v})
	}
	single.AppendRow(table.Row{"f1": "2"})

	if !HasZeroVariance(constant, "f1") {
		t.Error("Expected a constant column to have zero variance")
	}
	if HasZeroVariance(varying, "f1") {
		t.Error("Expected a varying column to have nonzero variance")
	}
	if HasZeroVariance(single, "f1") {
		t.Error("A single row must never count as zero variance")
	}
}

func TestHasZeroVariance_IdempotentAfterRewrite(t *testing.T) {
	// differently formatted but numerically equal cells count as constant,
	// so re-running the check after canonical rewriting changes nothing
	tbl := table.New("f1")
	tbl.AppendRow(table.Row{"f1": "2"})
	tbl.AppendRow(table.Row{"f1": "2.0"})
	tbl.AppendRow(table.Row{"f1": "2.00"})

	if !HasZeroVariance(tbl, "f1") {
		t.Error("Expected numerically equal cells to count as zero variance")
	}

	rewritten, _ := FilterOnColumn(tbl, "f1", false)
	if !HasZeroVariance(rewritten, "f1") {
		t.Error("Expected zero variance to hold after canonical rewriting")
	}
}

func TestSelectCandidatesWithMinItems(t *testing.T) {
	tbl := table.New("spkitemid", "candidate")
	tbl.AppendRow(table.Row{"spkitemid": "1", "candidate": "A"})
	tbl.AppendRow(table.Row{"spkitemid": "2", "candidate": "A"})
	tbl.AppendRow(table.Row{"spkitemid": "3", "candidate": "B"})

	kept, excluded := SelectCandidatesWithMinItems(tbl, "candidate", 2)

	if kept.Len() != 2 {
		t.Errorf("Expected candidate A's 2 rows to survive, got %d", kept.Len())
	}
	if excluded.Len() != 1 || excluded.Rows[0]["candidate"] != "B" {
		t.Errorf("Expected candidate B to be excluded, got %v", excluded.Rows)
	}
}

func TestSelectCandidatesWithMinItems_Monotonic(t *testing.T) {
	tbl := table.New("spkitemid", "candidate")
	candidates := []string{"A", "A", "A", "B", "B", "C"}
	for i, c := range candidates {
		tbl.AppendRow(table.Row{"spkitemid": string(rune('a' + i)), "candidate": c})
	}

	// raising the threshold can only shrink the kept set
	previous := len(candidates) + 1
	for minItems := 1; minItems <= 4; minItems++ {
		kept, _ := SelectCandidatesWithMinItems(tbl, "candidate", minItems)
		if kept.Len() > previous {
			t.Errorf("Kept set grew when threshold rose to %d: %d > %d", minItems, kept.Len(), previous)
		}
		previous = kept.Len()
	}
}
