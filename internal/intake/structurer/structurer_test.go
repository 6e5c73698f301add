package structurer

import "testing"

func TestExtractJSON_DirectParse(t *testing.T) {
	in := `{"identity":{"first_name":"Maria"}}`
	out, ok := extractJSON(in)
	if !ok || out != in {
		t.Fatalf("direct parse failed: %q ok=%v", out, ok)
	}
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	in := "Here you go:\n```json\n{\"identity\":{\"first_name\":\"Maria\"}}\n```\nDone."
	out, ok := extractJSON(in)
	if !ok {
		t.Fatalf("expected fenced block to parse")
	}
	if out != `{"identity":{"first_name":"Maria"}}` {
		t.Fatalf("unexpected extraction: %q", out)
	}
}

func TestExtractJSON_FirstLastBraceWithTrailingComma(t *testing.T) {
	in := `noise before {"identity":{"first_name":"Maria",}} noise after`
	out, ok := extractJSON(in)
	if !ok {
		t.Fatalf("expected brace-window extraction with repair to succeed")
	}
	if out != `{"identity":{"first_name":"Maria"}}` {
		t.Fatalf("unexpected repaired JSON: %q", out)
	}
}

func TestParseDate_YearOnlySubstitution(t *testing.T) {
	got, ok := parseDate("2018")
	if !ok {
		t.Fatal("expected year-only date to parse")
	}
	if got.Month() != 1 || got.Day() != 1 || got.Year() != 2018 {
		t.Fatalf("expected 2018-01-01, got %v", got)
	}
}

func TestBuildDateRange_AutoSwap(t *testing.T) {
	dr, swapped := buildDateRange("2020-01-01", "2018-01-01")
	if !swapped {
		t.Fatal("expected inverted range to be detected as swapped")
	}
	if dr.Start.After(*dr.End) {
		t.Fatalf("expected start <= end after swap, got %v > %v", dr.Start, dr.End)
	}
}
