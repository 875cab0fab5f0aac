package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-bim/pkg/browser"
)

func browseCmd(wrap wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [ID]",
		Short: "Walk the building hierarchy in a terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			start := ""
			if len(args) == 1 {
				start = args[0]
			}
			return browser.Run(ctx, a.engine, a.aggregator, start)
		}),
	}
}
