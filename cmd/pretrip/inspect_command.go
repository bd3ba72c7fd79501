package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/store"
)

type inspectOutput struct {
	File      string                `json:"file"`
	Headers   []string              `json:"headers"`
	View      blueprint.SessionView `json:"view"`
	Report    blueprint.GroupReport `json:"report"`
	EmptyRows []int                 `json:"empty_rows,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var required []string

	cmd := &cobra.Command{
		Use:   "inspect <file.csv>",
		Short: "Parse a blueprint offline and print its grouped items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readBlueprint(args[0])
			if err != nil {
				return err
			}

			schema := blueprint.DefaultSchema().WithRequired(required)
			res, err := blueprint.Ingest(text, schema)
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, inspectOutput{
					File:      args[0],
					Headers:   res.Headers,
					View:      res.Session.Snapshot(),
					Report:    res.Report,
					EmptyRows: res.EmptyRows,
				})
			}

			out := cmd.OutOrStdout()
			view := res.Session.Snapshot()
			fmt.Fprintln(out, renderItems(view))
			fmt.Fprintf(out, "%d items in %d equipment groups\n", view.Items, len(view.Groups))
			printSkipped(cmd, res.Report, res.EmptyRows)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&required, "required", nil, "Required columns (defaults to the pretrip set)")
	return cmd
}

// renderItems lays out a session view as one table row per item.
func renderItems(view blueprint.SessionView) string {
	headers := []string{"Equipment", "Section", "#", "Item", "Details", "Pass/Fail", "Numeric", "Date"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignCenter, alignLeft, alignLeft, alignCenter, alignCenter, alignCenter}

	var rows [][]string
	for _, g := range view.Groups {
		for _, sec := range g.Sections {
			for i, it := range sec.Items {
				rows = append(rows, []string{
					g.Name,
					sec.Name,
					strconv.Itoa(i),
					it.Fields[blueprint.ColInspectionItem],
					it.Fields[blueprint.ColDetails],
					mark(it.Fixed[blueprint.ColPassFail]),
					mark(it.Fields[blueprint.ColNumericRequired]),
					mark(it.Fields[blueprint.ColDateRequired]),
				})
			}
		}
	}
	return renderTable(headers, rows, aligns)
}

func mark(v string) string {
	if store.ParseBool(v) {
		return "✓"
	}
	return ""
}

func printSkipped(cmd *cobra.Command, report blueprint.GroupReport, emptyRows []int) {
	out := cmd.OutOrStdout()
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped rows missing equipment, section or item: %s\n", joinInts(report.Skipped))
	}
	if len(emptyRows) > 0 {
		fmt.Fprintf(out, "Blank rows ignored: %s\n", joinInts(emptyRows))
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
