package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/client"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		name     string
		override bool
		renames  []string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file.csv>",
		Short: "Validate a blueprint with the server, apply renames and submit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parseRenames(renames)
			if err != nil {
				return err
			}

			text, err := readBlueprint(args[0])
			if err != nil {
				return err
			}

			api, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			required, err := api.RequiredColumns(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch required columns: %w", err)
			}
			controller := client.NewController(api, blueprint.DefaultSchema().WithRequired(required))

			res, err := controller.Load(cmd.Context(), text)
			if err != nil {
				return err
			}

			for _, p := range pairs {
				if err := res.Session.RenamePrimary(p[0], p[1]); err != nil {
					return fmt.Errorf("rename %q to %q: %w", p[0], p[1], err)
				}
			}

			if dryRun {
				p, err := blueprint.BuildPayload(res.Session, name, override)
				if err != nil {
					return err
				}
				return writeJSON(cmd, p)
			}

			result, err := controller.Submit(cmd.Context(), res.Session, name, override)
			if errors.Is(err, client.ErrNameExists) {
				return fmt.Errorf("blueprint %q: %w (use --override to replace it)", name, err)
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderItems(res.Session.Snapshot()))
			printSkipped(cmd, res.Report, res.EmptyRows)
			fmt.Fprintln(out, result.Message)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "Blueprint name (required)")
	flags.BoolVar(&override, "override", false, "Replace an existing blueprint with the same name")
	flags.StringArrayVar(&renames, "rename", nil, "Rename equipment before submitting, as old=new (repeatable)")
	flags.BoolVar(&dryRun, "dry-run", false, "Print the payload instead of submitting it")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// parseRenames splits old=new flag values.
func parseRenames(values []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(values))
	for _, v := range values {
		oldName, newName, ok := strings.Cut(v, "=")
		oldName = strings.TrimSpace(oldName)
		if !ok || oldName == "" {
			return nil, fmt.Errorf("invalid --rename %q: want old=new", v)
		}
		pairs = append(pairs, [2]string{oldName, newName})
	}
	return pairs, nil
}
