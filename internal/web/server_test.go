package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/config"
	"github.com/JonMunkholm/pretrip/internal/store"
)

const validCSV = "Equipment,Section,Inspection Item,Pass Fail,Numeric Required,Date Required,Details\n" +
	"Truck,Brakes,Pad Wear,yes,no,no,Check pads\n" +
	"Truck,Brakes,Rotor,yes,yes,no,\n" +
	"Truck,Lights,Headlamp,yes,no,no,\n" +
	"Trailer,Tires,Tread,yes,yes,yes,\"Depth, 4/32 min\"\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			URL:    ":memory:",
		},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			SubmitTimeout: 5 * time.Second,
		},
		Session: config.SessionConfig{
			TTL:           time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   10,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

type testServer struct {
	*Server
	store *store.SQLiteStore
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	st, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	srv := NewServer(st, cfg)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = st.Close()
	})
	return &testServer{Server: srv, store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(t *testing.T, fileName, content string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.WriteString(fw, content)
	} else {
		_ = mw.WriteField("note", "no file")
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) createSession(t *testing.T) SessionResponse {
	t.Helper()
	rec := ts.upload(t, "fleet.csv", validCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[SessionResponse](t, rec)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequiredColumns(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/admin/pretrip/required-columns", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody[map[string][]string](t, rec)
	if diff := cmp.Diff(blueprint.DefaultSchema().Required, got["columns"]); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestRequiredColumnsOverride(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Schema.RequiredColumns = []string{"Equipment", "Section", "Inspection Item"}
	})
	got := decodeBody[map[string][]string](t, ts.do(t, http.MethodGet, "/admin/pretrip/required-columns", nil))
	want := []string{"equipment", "section", "inspection_item"}
	if diff := cmp.Diff(want, got["columns"]); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateHeaders(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name        string
		columns     []string
		wantValid   bool
		wantMissing []string
	}{
		{
			name:      "all present with extras",
			columns:   []string{"Equipment", "Section", "Inspection Item", "Pass Fail", "Numeric Required", "Date Required", "Color"},
			wantValid: true,
		},
		{
			name:        "missing item and dates",
			columns:     []string{"equipment", "section", "pass_fail", "numeric_required"},
			wantMissing: []string{"inspection_item", "date_required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/admin/pretrip/validate-headers", map[string]any{"columns": tt.columns})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			got := decodeBody[blueprint.ColumnCheck](t, rec)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if diff := cmp.Diff(tt.wantMissing, got.Missing); diff != "" {
				t.Errorf("Missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateHeadersBadBody(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/admin/pretrip/validate-headers", `{"cols":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[ErrorResponse](t, rec)
	if resp.Code != "VAL003" {
		t.Errorf("code = %q, want VAL003", resp.Code)
	}
}

func TestPayloadUploadLifecycle(t *testing.T) {
	ts := newTestServer(t)
	payload := blueprint.Payload{
		Name: "Daily Truck",
		Rows: []blueprint.PayloadRow{
			{"equipment": "Truck", "section": "Brakes", "inspection_item": "Front", "pass_fail": "yes"},
			{"equipment": "Truck", "section": "Brakes", "inspection_item": "Rear", "pass_fail": "yes"},
		},
	}

	check := func(wantExists bool) {
		t.Helper()
		rec := ts.do(t, http.MethodGet, "/admin/pretrip/check-blueprint-name?name=Daily+Truck", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("check status = %d", rec.Code)
		}
		if got := decodeBody[map[string]bool](t, rec)["exists"]; got != wantExists {
			t.Errorf("exists = %v, want %v", got, wantExists)
		}
	}

	check(false)

	rec := ts.do(t, http.MethodPost, "/admin/pretrip/blueprint-payload-upload", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("first submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[SubmitResponse](t, rec); got.Status != "success" || got.Items != 2 {
		t.Errorf("first submit = %+v", got)
	}

	check(true)

	rec = ts.do(t, http.MethodPost, "/admin/pretrip/blueprint-payload-upload", payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("conflict status = %d, want 409", rec.Code)
	}
	if got := decodeBody[SubmitResponse](t, rec); got.Status != "error" || !got.Exists {
		t.Errorf("conflict response = %+v, want status error with exists", got)
	}

	payload.Override = true
	payload.Rows = payload.Rows[:1]
	rec = ts.do(t, http.MethodPost, "/admin/pretrip/blueprint-payload-upload", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("override status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[SubmitResponse](t, rec); !got.Replaced || got.Items != 1 {
		t.Errorf("override response = %+v, want replaced with 1 item", got)
	}

	rec = ts.do(t, http.MethodGet, "/admin/pretrip/blueprints/Daily%20Truck", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeBody[store.Template](t, rec); len(got.Items) != 1 || got.Items[0].Name != "Front" {
		t.Errorf("stored items = %+v", got.Items)
	}

	list := decodeBody[map[string][]store.Summary](t, ts.do(t, http.MethodGet, "/admin/pretrip/blueprints", nil))
	if len(list["blueprints"]) != 1 {
		t.Errorf("list = %+v, want one blueprint", list)
	}
}

func TestPayloadUploadEmptyName(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/admin/pretrip/blueprint-payload-upload", blueprint.Payload{Name: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if resp := decodeBody[ErrorResponse](t, rec); resp.Code != "VAL002" {
		t.Errorf("code = %q, want VAL002", resp.Code)
	}
}

func TestCheckBlueprintNameRequiresName(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/admin/pretrip/check-blueprint-name?name=%20", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBlueprintMissing(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/admin/pretrip/blueprints/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.createSession(t)

	if resp.ID == "" {
		t.Fatal("empty session id")
	}
	if resp.View.Items != 4 {
		t.Errorf("Items = %d, want 4", resp.View.Items)
	}
	var groups []string
	for _, g := range resp.View.Groups {
		groups = append(groups, g.Name)
	}
	if diff := cmp.Diff([]string{"Truck", "Trailer"}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if resp.ExpiresAt.IsZero() {
		t.Error("ExpiresAt is zero")
	}
}

func TestCreateSessionErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		fileName string
		content  string
		want     int
		wantCode string
	}{
		{"not csv", "fleet.txt", validCSV, http.StatusUnsupportedMediaType, "FILE002"},
		{"no file", "", "", http.StatusBadRequest, "FILE004"},
		{"empty", "fleet.csv", "", http.StatusBadRequest, "FILE003"},
		{"missing item column", "fleet.csv", "equipment,section,pass_fail,numeric_required,date_required\nTruck,Brakes,yes,no,no\n", http.StatusUnprocessableEntity, "VAL001"},
		{"too large", "fleet.csv", validCSV + strings.Repeat("x", 2<<20), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.upload(t, tt.fileName, tt.content)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if resp := decodeBody[ErrorResponse](t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestCreateSessionMissingColumnsDetails(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.upload(t, "fleet.csv", "equipment,section,pass_fail,numeric_required,date_required\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp struct {
		Details blueprint.ColumnCheck `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"inspection_item"}, resp.Details.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if ts.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0", ts.sessions.Len())
	}
}

func TestCreateSessionHTMX(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.upload(t, "fleet.csv", validCSV, "HX-Request", "true")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Headlamp") {
		t.Error("summary does not list items")
	}
}

func TestSessionEditing(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t).ID
	base := "/api/sessions/" + id

	// Collision leaves state unchanged
	rec := ts.do(t, http.MethodPost, base+"/rename", renameRequest{Old: "Truck", New: "Trailer"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("collision status = %d, want 409", rec.Code)
	}
	if code := decodeBody[ErrorResponse](t, rec).Code; code != "SES001" {
		t.Errorf("collision code = %q, want SES001", code)
	}

	rec = ts.do(t, http.MethodPost, base+"/rename", renameRequest{Old: "Truck", New: "Tractor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rec.Code)
	}
	view := decodeBody[SessionResponse](t, rec).View
	if diff := cmp.Diff(map[string]string{"Truck": "Tractor"}, view.Renames); diff != "" {
		t.Errorf("renames mismatch (-want +got):\n%s", diff)
	}

	ref := blueprint.ItemRef{Primary: "Tractor", Secondary: "Brakes", Index: 0}
	rec = ts.do(t, http.MethodPost, base+"/items/duplicate", ref)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	var dup struct {
		Session SessionResponse   `json:"session"`
		Result  blueprint.ItemRef `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dup); err != nil {
		t.Fatal(err)
	}
	if dup.Result.Index != 2 || dup.Session.View.Items != 5 {
		t.Errorf("duplicate = %+v items %d, want index 2 and 5 items", dup.Result, dup.Session.View.Items)
	}

	rec = ts.do(t, http.MethodPost, base+"/items/edit", editRequest{ItemRef: dup.Result, Field: "details", Value: "Check rear pads"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, base+"/items/edit", editRequest{ItemRef: dup.Result, Field: "pass_fail", Value: "no"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("fixed edit status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, base+"/items/delete", blueprint.ItemRef{Primary: "Tractor", Secondary: "Lights", Index: 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if n := decodeBody[SessionResponse](t, rec).View.Items; n != 4 {
		t.Errorf("Items after delete = %d, want 4", n)
	}

	rec = ts.do(t, http.MethodPost, base+"/items/delete", blueprint.ItemRef{Primary: "Tractor", Secondary: "Lights", Index: 0})
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, base+"/payload?name=Fleet", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("payload status = %d", rec.Code)
	}
	p := decodeBody[blueprint.Payload](t, rec)
	if len(p.Rows) != 4 {
		t.Fatalf("payload rows = %d, want 4", len(p.Rows))
	}
	if got := p.Rows[2]["details"]; got != "Check rear pads" {
		t.Errorf("duplicated row details = %q, want edited value", got)
	}
	if got := p.Rows[0]["equipment"]; got != "Tractor" {
		t.Errorf("row equipment = %q, want Tractor", got)
	}
}

func TestSessionSubmit(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t).ID
	path := "/api/sessions/" + id + "/submit"

	rec := ts.do(t, http.MethodPost, path, submitRequest{Name: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, path, submitRequest{Name: "Fleet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, path, submitRequest{Name: "Fleet"})
	if rec.Code != http.StatusConflict {
		t.Errorf("resubmit status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, path, submitRequest{Name: "Fleet", Override: true})
	if rec.Code != http.StatusOK {
		t.Errorf("override status = %d, want 200", rec.Code)
	}

	tmpl, err := ts.store.Get(context.Background(), "Fleet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(tmpl.Items) != 4 {
		t.Errorf("stored items = %d, want 4", len(tmpl.Items))
	}
	if !tmpl.Items[0].BooleanRequired || tmpl.Items[0].NumericRequired {
		t.Errorf("first item flags = %+v", tmpl.Items[0])
	}
}

func TestSessionSubmitLogsSessionFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ts := newTestServer(t)
	id := ts.createSession(t).ID

	rec := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", submitRequest{Name: "Fleet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["msg"] == "session submit started" {
			found = true
			if entry["session_id"] != id || entry["blueprint"] != "Fleet" {
				t.Errorf("log entry = %v, want session_id %q and blueprint Fleet", entry, id)
			}
		}
	}
	if !found {
		t.Errorf("no submit log entry in:\n%s", buf.String())
	}
}

func TestSessionSubmitInFlight(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t).ID

	sess, err := ts.sessions.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.gate.Enter(); err != nil {
		t.Fatal(err)
	}
	defer sess.gate.Leave()

	rec := ts.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", submitRequest{Name: "Fleet"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if code := decodeBody[ErrorResponse](t, rec).Code; code != "SUB002" {
		t.Errorf("code = %q, want SUB002", code)
	}
}

func TestSessionLookup(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t).ID

	if rec := ts.do(t, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if code := decodeBody[ErrorResponse](t, rec).Code; code != "SES005" {
		t.Errorf("code = %q, want SES005", code)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.createSession(t)

	var got struct {
		Submissions blueprint.LimiterStatus `json:"submissions"`
		Sessions    int                     `json:"sessions"`
	}
	rec := ts.do(t, http.MethodGet, "/api/status", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := blueprint.LimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}
	if diff := cmp.Diff(want, got.Submissions); diff != "" {
		t.Errorf("submissions mismatch (-want +got):\n%s", diff)
	}
	if got.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", got.Sessions)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", []string{"X-API-Key", "nope"}, http.StatusForbidden},
		{"header key", []string{"X-API-Key", "secret"}, http.StatusOK},
		{"bearer", []string{"Authorization", "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/admin/pretrip/required-columns", nil, tt.header...)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Health stays open for probes
	if rec := ts.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("10.0.0.1"); got != want {
			t.Errorf("allow #%d = %v, want %v", i, got, want)
		}
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other client throttled")
	}

	now = now.Add(2 * time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Error("allow after window = false, want true")
	}
}

func TestShutdownStopsRateLimiterCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60}
	srv := NewServer(st, cfg)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// A second Shutdown is harmless
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
