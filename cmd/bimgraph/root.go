package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, a *app, args []string) error

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "bimgraph",
		Short: "Query BIM building hierarchies as a property graph",
		Long: `bimgraph ingests a BIM element document (projects, sites, buildings,
floors, rooms, doors and windows), derives the relationships between the
elements and answers hierarchy, adjacency and aggregation queries.

Examples:
  bimgraph load building.json
  bimgraph --input building.json descendants bld_1 --max-depth 1
  bimgraph --input building.json path rm_3 dr_2
  bimgraph --config bimgraph.yaml serve`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")
	flags.StringVarP(&opts.inputPath, "input", "i", "", "BIM input document (JSON)")
	flags.StringVar(&opts.backend, "backend", "", "graph store backend (memory, postgres)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for the memory store write-ahead log")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	withApp := func(fn runFunc) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, opts, c.OutOrStdout(), c.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(ctx, a, args)
		}
	}

	cmd.AddCommand(
		loadCmd(withApp),
		resetCmd(withApp),
		infoCmd(withApp),
		getCmd(withApp),
		byTypeCmd(withApp),
		childrenCmd(withApp),
		descendantsCmd(withApp),
		ancestorsCmd(withApp),
		connectedCmd(withApp),
		openingsCmd(withApp),
		pathCmd(withApp),
		statsCmd(withApp),
		capacityCmd(withApp),
		metadataCmd(withApp),
		serveCmd(withApp),
		backupCmd(withApp),
		browseCmd(withApp),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(c *cobra.Command, args []string) {
				fmt.Fprintf(c.OutOrStdout(), "bimgraph version %s\n", Version)
			},
		},
	)

	cmd.SetErr(os.Stderr)
	return cmd
}
