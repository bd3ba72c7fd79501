package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// Backend is the part of Client the Controller depends on.
type Backend interface {
	ValidateHeaders(ctx context.Context, columns []string) (blueprint.ColumnCheck, error)
	CheckName(ctx context.Context, name string) (bool, error)
	Submit(ctx context.Context, p *blueprint.Payload) (SubmitResult, error)
}

// Controller drives one file through remote validation, local grouping and
// submission. Load and Submit share a gate, so a second call while one is
// outstanding fails with blueprint.ErrSubmitInFlight.
type Controller struct {
	backend Backend
	schema  blueprint.Schema
	gate    blueprint.Gate
}

// NewController returns a controller grouping with schema.
func NewController(b Backend, schema blueprint.Schema) *Controller {
	return &Controller{backend: b, schema: schema}
}

// Load parses text, validates its header with the backend and builds an
// editing session. An invalid header returns a *blueprint.MissingColumnsError
// with the backend's missing list; no session is built.
func (c *Controller) Load(ctx context.Context, text string) (*blueprint.Result, error) {
	if err := c.gate.Enter(); err != nil {
		return nil, err
	}
	defer c.gate.Leave()

	parsed, err := blueprint.Parse(text)
	if err != nil {
		return nil, err
	}

	check, err := c.backend.ValidateHeaders(ctx, parsed.Headers)
	if err != nil {
		return nil, fmt.Errorf("validate headers: %w", err)
	}
	if !check.Valid {
		return nil, check.Err()
	}

	res := blueprint.Assemble(parsed, c.schema)
	slog.Debug("blueprint loaded",
		"items", res.Report.Grouped,
		"skipped", len(res.Report.Skipped),
		"empty_rows", len(res.EmptyRows),
	)
	return res, nil
}

// Submit builds the payload from s and sends it. Without override a name
// already stored is rejected with ErrNameExists before anything is sent.
func (c *Controller) Submit(ctx context.Context, s *blueprint.Session, name string, override bool) (SubmitResult, error) {
	if err := c.gate.Enter(); err != nil {
		return SubmitResult{}, err
	}
	defer c.gate.Leave()

	p, err := blueprint.BuildPayload(s, name, override)
	if err != nil {
		return SubmitResult{}, err
	}

	if !override {
		exists, err := c.backend.CheckName(ctx, p.Name)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("check blueprint name: %w", err)
		}
		if exists {
			return SubmitResult{Status: "error", Exists: true}, ErrNameExists
		}
	}

	res, err := c.backend.Submit(ctx, p)
	if err != nil {
		return res, err
	}
	slog.Info("blueprint submitted", "name", p.Name, "items", len(p.Rows), "replaced", res.Replaced)
	return res, nil
}

// Busy reports whether a Load or Submit is outstanding.
func (c *Controller) Busy() bool {
	return c.gate.Busy()
}
