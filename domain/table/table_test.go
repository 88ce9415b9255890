package table

import (
	"testing"
)

func sampleTable() Table {
	tbl := New("id", "score", "notes")
	tbl.AppendRow(Row{"id": "001", "score": "3", "notes": "ok"})
	tbl.AppendRow(Row{"id": "002", "score": "0", "notes": ""})
	tbl.AppendRow(Row{"id": "003", "score": "bad", "notes": "typo"})
	return tbl
}

func TestSelect_PreservesOrderAndSkipsMissing(t *testing.T) {
	tbl := sampleTable()

	selected := tbl.Select("score", "id", "nonexistent")

	if len(selected.Columns) != 2 || selected.Columns[0] != "score" || selected.Columns[1] != "id" {
		t.Fatalf("Expected columns [score id], got %v", selected.Columns)
	}
	if selected.Len() != 3 {
		t.Fatalf("Expected 3 rows, got %d", selected.Len())
	}
	if _, ok := selected.Rows[0]["notes"]; ok {
		t.Error("Selected rows should not carry unselected columns")
	}
}

func TestDrop(t *testing.T) {
	tbl := sampleTable()

	dropped := tbl.Drop("notes")

	if dropped.HasColumn("notes") {
		t.Error("Expected notes column to be gone")
	}
	if !tbl.HasColumn("notes") {
		t.Error("Drop must not mutate the original table")
	}
}

func TestRenameColumns_InPlace(t *testing.T) {
	tbl := sampleTable()

	tbl.RenameColumns(map[string]string{"id": "spkitemid", "score": "sc1"})

	if !tbl.HasColumn("spkitemid") || !tbl.HasColumn("sc1") {
		t.Fatalf("Expected renamed columns, got %v", tbl.Columns)
	}
	if tbl.Rows[0]["spkitemid"] != "001" {
		t.Errorf("Expected cell to move with the rename, got %q", tbl.Rows[0]["spkitemid"])
	}
	if _, ok := tbl.Rows[0]["id"]; ok {
		t.Error("Old column key should be removed from rows")
	}
}

func TestPartition(t *testing.T) {
	tbl := sampleTable()

	kept, dropped := tbl.Partition(func(r Row) bool {
		_, ok := ParseNumeric(r["score"])
		return ok
	})

	if kept.Len() != 2 {
		t.Errorf("Expected 2 kept rows, got %d", kept.Len())
	}
	if dropped.Len() != 1 {
		t.Errorf("Expected 1 dropped row, got %d", dropped.Len())
	}
	if dropped.Rows[0]["id"] != "003" {
		t.Errorf("Expected the non-numeric row to be dropped, got %v", dropped.Rows[0])
	}
}

func TestOuterMerge(t *testing.T) {
	left := New("id", "reason")
	left.AppendRow(Row{"id": "001", "reason": "flag"})

	right := New("id", "reason", "extra")
	right.AppendRow(Row{"id": "001", "reason": "label", "extra": "x"})
	right.AppendRow(Row{"id": "002", "reason": "label"})

	merged := left.OuterMerge(right, "id")

	if merged.Len() != 2 {
		t.Fatalf("Expected 2 rows after merge, got %d", merged.Len())
	}
	// populated cells are never overwritten
	if merged.Rows[0]["reason"] != "flag" {
		t.Errorf("Expected the existing reason to survive, got %q", merged.Rows[0]["reason"])
	}
	// empty cells are filled from the incoming row
	if merged.Rows[0]["extra"] != "x" {
		t.Errorf("Expected the empty cell to be filled, got %q", merged.Rows[0]["extra"])
	}
	if merged.Rows[1]["id"] != "002" || merged.Rows[1]["reason"] != "label" {
		t.Errorf("Expected the new id to be appended as-is, got %v", merged.Rows[1])
	}
	if !merged.HasColumn("extra") {
		t.Error("Expected the column set to become the union")
	}
}

func TestOuterMerge_DoesNotMutateReceiver(t *testing.T) {
	left := New("id")
	left.AppendRow(Row{"id": "001"})

	right := New("id", "reason")
	right.AppendRow(Row{"id": "001", "reason": "label"})

	left.OuterMerge(right, "id")

	if left.HasColumn("reason") {
		t.Error("OuterMerge must not mutate the receiver's columns")
	}
	if _, ok := left.Rows[0]["reason"]; ok {
		t.Error("OuterMerge must not mutate the receiver's rows")
	}
}

func TestNumericColumn(t *testing.T) {
	tbl := sampleTable()

	values, parsed := tbl.NumericColumn("score")

	if !parsed[0] || values[0] != 3 {
		t.Errorf("Expected row 0 to parse as 3, got %v (%v)", values[0], parsed[0])
	}
	if !parsed[1] || values[1] != 0 {
		t.Errorf("Expected row 1 to parse as 0, got %v (%v)", values[1], parsed[1])
	}
	if parsed[2] {
		t.Error("Expected row 2 not to parse")
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"3", 3, true},
		{" 2.5 ", 2.5, true},
		{"-1", -1, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1e2", 100, true},
	}

	for _, test := range tests {
		v, ok := ParseNumeric(test.input)
		if ok != test.ok || v != test.expected {
			t.Errorf("ParseNumeric(%q) = %v, %v; expected %v, %v",
				test.input, v, ok, test.expected, test.ok)
		}
	}
}

func TestFormatNumeric_RoundTrips(t *testing.T) {
	// identifier-like strings stay intact because cells are only rewritten
	// after an explicit parse, never wholesale
	for _, v := range []float64{0, 1, -1, 2.5, 100} {
		parsed, ok := ParseNumeric(FormatNumeric(v))
		if !ok || parsed != v {
			t.Errorf("FormatNumeric(%g) did not round-trip, got %v (%v)", v, parsed, ok)
		}
	}
}

func TestSetAndFillColumn(t *testing.T) {
	tbl := New("id")
	tbl.AppendRow(Row{"id": "001"})
	tbl.AppendRow(Row{"id": "002"})

	tbl.SetColumn("sc1", []string{"3", "4"})
	if tbl.Rows[0]["sc1"] != "3" || tbl.Rows[1]["sc1"] != "4" {
		t.Errorf("SetColumn did not assign per-row values: %v", tbl.Rows)
	}

	tbl.FillColumn("reason", "flag")
	for i, r := range tbl.Rows {
		if r["reason"] != "flag" {
			t.Errorf("FillColumn missed row %d: %v", i, r)
		}
	}
	if len(tbl.Columns) != 3 {
		t.Errorf("Expected 3 columns, got %v", tbl.Columns)
	}
}
