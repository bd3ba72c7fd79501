package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPayload(name string, override bool) *blueprint.Payload {
	return &blueprint.Payload{
		Name:     name,
		Override: override,
		Rows: []blueprint.PayloadRow{
			{"equipment": "Brakes", "section": "Front", "inspection_item": "Pad Wear", "pass_fail": "yes", "numeric_required": "no", "date_required": "no", "details": "Check pads"},
			{"equipment": "Brakes", "section": "Rear", "inspection_item": "Pad Wear", "pass_fail": "yes", "numeric_required": "yes", "date_required": "no"},
			{"equipment": "Lights", "section": "Front", "inspection_item": "Headlamp", "pass_fail": "no", "numeric_required": "no", "date_required": "1", "notes": "Both sides"},
		},
	}
}

func TestSQLite_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.Save(ctx, testPayload("Fleet A", false))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.Items != 3 || res.Replaced || res.TemplateID == 0 {
		t.Errorf("SaveResult = %+v", res)
	}

	got, err := s.Get(ctx, "Fleet A")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.EquipmentType != "Brakes, Lights" {
		t.Errorf("EquipmentType = %q, want %q", got.EquipmentType, "Brakes, Lights")
	}

	want := []ItemRecord{
		{Equipment: "Brakes", Section: "Front", Name: "Pad Wear", Details: "Check pads", BooleanRequired: true, DisplayOrder: 0},
		{Equipment: "Brakes", Section: "Rear", Name: "Pad Wear", BooleanRequired: true, NumericRequired: true, DisplayOrder: 1},
		{Equipment: "Lights", Section: "Front", Name: "Headlamp", Notes: "Both sides", DateRequired: true, DisplayOrder: 2},
	}
	if diff := cmp.Diff(want, got.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_Exists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "Fleet A"); err != nil || ok {
		t.Fatalf("Exists() before save = %v, %v", ok, err)
	}
	if _, err := s.Save(ctx, testPayload("Fleet A", false)); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Exists(ctx, "Fleet A"); err != nil || !ok {
		t.Errorf("Exists() after save = %v, %v", ok, err)
	}
	if ok, _ := s.Exists(ctx, "fleet a"); ok {
		t.Error("Exists() should match names exactly")
	}
}

func TestSQLite_ConflictWithoutOverride(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, testPayload("Fleet A", false)); err != nil {
		t.Fatal(err)
	}

	second := testPayload("Fleet A", false)
	second.Rows = second.Rows[:1]
	if _, err := s.Save(ctx, second); !errors.Is(err, ErrNameExists) {
		t.Fatalf("Save() error = %v, want ErrNameExists", err)
	}

	got, err := s.Get(ctx, "Fleet A")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 3 {
		t.Errorf("stored items = %d, want original 3", len(got.Items))
	}
}

func TestSQLite_OverrideReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, testPayload("Fleet A", false)); err != nil {
		t.Fatal(err)
	}

	replacement := testPayload("Fleet A", true)
	replacement.Rows = replacement.Rows[2:]
	res, err := s.Save(ctx, replacement)
	if err != nil {
		t.Fatalf("Save() with override error = %v", err)
	}
	if !res.Replaced || res.Items != 1 {
		t.Errorf("SaveResult = %+v, want replaced with 1 item", res)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []Summary{{Name: "Fleet A", EquipmentType: "Lights", Items: 1}}
	opts := cmpopts.IgnoreFields(Summary{}, "ID", "CreatedAt")
	if diff := cmp.Diff(want, list, opts); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	var orphans int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pretrip_items`).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 1 {
		t.Errorf("pretrip_items rows = %d, want 1 after replace", orphans)
	}
}

func TestSQLite_SaveRejectsBlankName(t *testing.T) {
	s := openTestStore(t)

	var ve *blueprint.ValidationError
	if _, err := s.Save(context.Background(), testPayload("  ", false)); !errors.As(err, &ve) {
		t.Errorf("Save() error = %v, want *ValidationError", err)
	}
	if _, err := s.Save(context.Background(), nil); !errors.As(err, &ve) {
		t.Errorf("Save(nil) error = %v, want *ValidationError", err)
	}
}

func TestSQLite_GetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLite_ListOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		if _, err := s.Save(ctx, testPayload(name, false)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sum := range list {
		names = append(names, sum.Name)
		if sum.CreatedAt.IsZero() {
			t.Errorf("%s: CreatedAt not set", sum.Name)
		}
	}
	if diff := cmp.Diff([]string{"Alpha", "Mike", "Zulu"}, names); diff != "" {
		t.Errorf("List order mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLite_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretrip.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, testPayload("Fleet A", false)); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if ok, err := reopened.Exists(ctx, "Fleet A"); err != nil || !ok {
		t.Errorf("Exists() after reopen = %v, %v", ok, err)
	}
}
