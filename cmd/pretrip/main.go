package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			if blueprint.IsUserFacing(err) {
				fmt.Fprintln(os.Stderr, blueprint.FormatUserError(err))
			}
		}
		os.Exit(1)
	}
}
