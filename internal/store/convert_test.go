package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"yes", true},
		{"YES", true},
		{" y ", true},
		{"true", true},
		{"t", true},
		{"1", true},
		{"Pass", true},
		{"x", true},
		{"no", false},
		{"false", false},
		{"0", false},
		{"fail", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToPgText(t *testing.T) {
	tests := []struct {
		in   string
		want pgtype.Text
	}{
		{"hello", pgtype.Text{String: "hello", Valid: true}},
		{"  padded  ", pgtype.Text{String: "padded", Valid: true}},
		{"", pgtype.Text{Valid: false}},
		{"   ", pgtype.Text{Valid: false}},
	}

	for _, tt := range tests {
		got := ToPgText(tt.in)
		if got != tt.want {
			t.Errorf("ToPgText(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if back := FromPgText(got); back != tt.want.String {
			t.Errorf("FromPgText(ToPgText(%q)) = %q, want %q", tt.in, back, tt.want.String)
		}
	}
}

func TestNullableString(t *testing.T) {
	if ns := nullableString(" "); ns.Valid {
		t.Errorf("nullableString(blank) = %+v, want invalid", ns)
	}
	if ns := nullableString(" a "); !ns.Valid || ns.String != "a" {
		t.Errorf("nullableString(\" a \") = %+v", ns)
	}
}
