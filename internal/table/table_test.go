package table

import (
	"testing"
)

func TestInferColumnKinds(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  Kind
	}{
		{"integers", []string{"1", "2", " 3 "}, KindInt},
		{"integers with missing", []string{"1", "", "3"}, KindFloat},
		{"floats", []string{"1.5", "2", "3e2"}, KindFloat},
		{"mixed text", []string{"1", "two", "3"}, KindString},
		{"all empty", []string{"", " "}, KindFloat},
		{"text", []string{"Whey Protein", "BCAA"}, KindString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := InferColumn("c", tt.cells)
			if col.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", col.Kind, tt.want)
			}
			if len(col.Values) != len(tt.cells) {
				t.Fatalf("len = %d, want %d", len(col.Values), len(tt.cells))
			}
		})
	}
}

func TestInferColumnKeepsRawStrings(t *testing.T) {
	col := InferColumn("Location", []string{" USA", "", "UK "})
	if col.Kind != KindString {
		t.Fatalf("kind = %s, want string", col.Kind)
	}
	if s, _ := col.String(0); s != " USA" {
		t.Errorf("value 0 = %q, want %q", s, " USA")
	}
	if !col.IsMissing(1) {
		t.Errorf("value 1 should be missing")
	}
	if col.MissingCount() != 1 {
		t.Errorf("missing = %d, want 1", col.MissingCount())
	}
}

func TestInferColumnNAMarkers(t *testing.T) {
	units := InferColumn(ColUnitsSold, []string{"10", "NA", " N/A ", "NaN"})
	if units.Kind != KindFloat {
		t.Fatalf("kind = %s, want float", units.Kind)
	}
	if got := units.MissingRows(); len(got) != 3 || got[0] != 1 {
		t.Errorf("missing rows = %v", got)
	}

	platform := InferColumn(ColPlatform, []string{"Amazon", "null", "None", "na"})
	if platform.Kind != KindString {
		t.Fatalf("kind = %s, want string", platform.Kind)
	}
	if platform.MissingCount() != 2 {
		t.Errorf("missing = %d, want 2", platform.MissingCount())
	}
	if s, _ := platform.String(3); s != "na" {
		t.Errorf("lowercase na should stay a value, got %q", s)
	}
}

func TestFromStrings(t *testing.T) {
	header := []string{ColUnitsSold, ColPrice, ColLocation}
	rows := [][]string{
		{"10", "2.5", "USA"},
		{"4", "1"},
	}

	tbl, err := FromStrings(header, rows)
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	names := tbl.Names()
	for i, want := range header {
		if names[i] != want {
			t.Errorf("column %d = %q, want %q", i, names[i], want)
		}
	}

	units, _ := tbl.Column(ColUnitsSold)
	if units.Kind != KindInt {
		t.Errorf("units kind = %s", units.Kind)
	}
	loc, _ := tbl.Column(ColLocation)
	if !loc.IsMissing(1) {
		t.Errorf("padded cell should be missing")
	}
}

func TestFromStringsRejectsBadInput(t *testing.T) {
	if _, err := FromStrings([]string{"a", "a"}, nil); err == nil {
		t.Errorf("expected duplicate header error")
	}
	if _, err := FromStrings([]string{"a"}, [][]string{{"1", "2"}}); err == nil {
		t.Errorf("expected long row error")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl, err := FromStrings([]string{"a"}, [][]string{{"1"}, {"2"}})
	if err != nil {
		t.Fatal(err)
	}
	cp := tbl.Clone()
	col, _ := cp.Column("a")
	col.Values[0] = int64(99)

	orig, _ := tbl.Column("a")
	if orig.Values[0] != int64(1) {
		t.Fatalf("clone mutated original: %v", orig.Values[0])
	}
}

func TestScratchColumns(t *testing.T) {
	tbl, err := FromStrings([]string{"a"}, [][]string{{"1"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddScratch("_f1", KindFloat, []any{1.0}); err != nil {
		t.Fatalf("AddScratch: %v", err)
	}
	if err := tbl.AddScratch("_f1", KindFloat, []any{2.0}); err != nil {
		t.Fatalf("AddScratch replace: %v", err)
	}
	if err := tbl.AddScratch("a", KindFloat, []any{1.0}); err == nil {
		t.Errorf("scratch must not shadow data column")
	}

	dropped := tbl.DropScratch()
	if len(dropped) != 1 || dropped[0] != "_f1" {
		t.Fatalf("dropped = %v", dropped)
	}
	if tbl.Has("_f1") {
		t.Errorf("scratch column still present")
	}
	if !tbl.Has("a") {
		t.Errorf("data column lost")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"object":         KindString,
		"int64":          KindInt,
		"float":          KindFloat,
		"datetime64[ns]": KindDate,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseKind("blob"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}
