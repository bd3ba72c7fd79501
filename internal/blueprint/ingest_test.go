package blueprint

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIngest_MissingColumn(t *testing.T) {
	text := "Equipment,Section,Pass Fail,Numeric Required,Date Required\nTruck,Brakes,yes,no,no\n"

	res, err := Ingest(text, DefaultSchema())
	if res != nil {
		t.Error("Ingest() returned a result for an invalid header")
	}

	var mce *MissingColumnsError
	if !errors.As(err, &mce) {
		t.Fatalf("Ingest() error = %v, want *MissingColumnsError", err)
	}
	if diff := cmp.Diff([]string{"inspection_item"}, mce.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}

	parsed, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	check := ValidateColumns(parsed.Headers, DefaultSchema().Required)
	if check.Valid {
		t.Error("Valid = true, want false")
	}
}

func TestIngest_EmptyFile(t *testing.T) {
	for _, text := range []string{"", "\n", "\n\n", " , ,\r\n\n"} {
		if _, err := Ingest(text, DefaultSchema()); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Ingest(%q) error = %v, want ErrEmptyFile", text, err)
		}
	}
}

func TestIngest_LeadingBlankLines(t *testing.T) {
	text := "\n,,\n" +
		"equipment,section,inspection_item,pass_fail,numeric_required,date_required\n" +
		"Truck,Brakes,Pad Wear,yes,no,no\n" +
		"Truck,,Orphan,yes,no,no\n"

	res, err := Ingest(text, DefaultSchema())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Session.Count() != 1 {
		t.Errorf("Count() = %d, want 1", res.Session.Count())
	}
	if diff := cmp.Diff([]string{"Truck"}, res.Session.PrimaryKeys()); diff != "" {
		t.Errorf("PrimaryKeys() mismatch (-want +got):\n%s", diff)
	}
	// The header is record 3, so the orphan is record 5.
	if diff := cmp.Diff([]int{5}, res.Report.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestIngest_HeaderOnly(t *testing.T) {
	text := "equipment,section,inspection_item,pass_fail,numeric_required,date_required\n"

	res, err := Ingest(text, DefaultSchema())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.Session.Count() != 0 {
		t.Errorf("Count() = %d, want 0", res.Session.Count())
	}
}

func TestIngest_ReportsSkippedAndEmptyRows(t *testing.T) {
	text := "equipment,section,inspection_item,pass_fail,numeric_required,date_required\r\n" +
		"Truck,Brakes,Pad Wear,yes,no,no\r\n" +
		",,,,,\r\n" +
		"Truck,,Orphan,yes,no,no\r\n" +
		"\"Truck\",\"Lights\",\"Headlamp, left\",yes,no,no\r\n"

	res, err := Ingest(text, DefaultSchema())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if diff := cmp.Diff([]int{3}, res.EmptyRows); diff != "" {
		t.Errorf("EmptyRows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4}, res.Report.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}

	items, err := res.Session.Items("Truck", "Lights")
	if err != nil {
		t.Fatal(err)
	}
	if got := items[0].Fields[ColInspectionItem]; got != "Headlamp, left" {
		t.Errorf("inspection_item = %q, want %q", got, "Headlamp, left")
	}
}
