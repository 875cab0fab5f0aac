package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-bim/pkg/api"
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

type wrapFunc func(runFunc) func(*cobra.Command, []string) error

func elements(elems []*bim.Element) api.ElementsResponse {
	if elems == nil {
		elems = []*bim.Element{}
	}
	return api.ElementsResponse{Elements: elems, Count: len(elems)}
}

// queryCmd builds a command that loads the input if needed and prints the
// result of fn for a single element id
func queryCmd(wrap wrapFunc, use, short string, fn func(ctx context.Context, a *app, id string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			result, err := fn(ctx, a, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(result)
		}),
	}
}

func loadCmd(wrap wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "load [PATH]",
		Short: "Replace the stored graph with a BIM document",
		Long: `Validate the document, clear the store and rebuild the graph. A document
that fails validation leaves the stored graph untouched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if len(args) == 1 {
				a.cfg.Input.Path = args[0]
			}
			path, err := a.requireInput()
			if err != nil {
				return err
			}
			report, err := a.loader.Reload(ctx, path, derive.TriggerManual)
			if err != nil {
				return err
			}
			return a.printJSON(report)
		}),
	}
}

func resetCmd(wrap wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every vertex and edge",
		Args:  cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			result, err := a.loader.Reset(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(result)
		}),
	}
}

func infoCmd(wrap wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the store, anchors and graph size",
		Args:  cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			info, err := a.aggregator.Info(ctx, a.cfg.AnchorSet())
			if err != nil {
				return err
			}
			return a.printJSON(api.InfoResponse{GraphInfo: info, LastLoad: a.loader.Last()})
		}),
	}
}

func getCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "get", "Show one element", func(ctx context.Context, a *app, id string) (any, error) {
		el, err := a.engine.Element(ctx, id)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, fmt.Errorf("element %q not found", id)
		}
		return el, nil
	})
}

func byTypeCmd(wrap wrapFunc) *cobra.Command {
	cmd := queryCmd(wrap, "by-type", "List elements of a type", func(ctx context.Context, a *app, arg string) (any, error) {
		t, err := bim.ParseElementType(arg)
		if err != nil {
			return nil, err
		}
		elems, err := a.engine.ElementsByType(ctx, t)
		return elements(elems), err
	})
	cmd.Use = "by-type TYPE"
	return cmd
}

func childrenCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "children", "List the direct children of an element", func(ctx context.Context, a *app, id string) (any, error) {
		elems, err := a.engine.Children(ctx, id)
		return elements(elems), err
	})
}

func descendantsCmd(wrap wrapFunc) *cobra.Command {
	var maxDepth int
	cmd := queryCmd(wrap, "descendants", "List every element below an element", func(ctx context.Context, a *app, id string) (any, error) {
		elems, err := a.engine.Descendants(ctx, id, maxDepth)
		return elements(elems), err
	})
	cmd.Flags().IntVar(&maxDepth, "max-depth", traversal.Unbounded, "levels below the direct children to include (-1 for all)")
	return cmd
}

func ancestorsCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "ancestors", "List the containers of an element, nearest first", func(ctx context.Context, a *app, id string) (any, error) {
		elems, err := a.engine.Ancestors(ctx, id)
		return elements(elems), err
	})
}

func connectedCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "connected", "List the rooms a room connects to through doors", func(ctx context.Context, a *app, id string) (any, error) {
		elems, err := a.engine.ConnectedRooms(ctx, id)
		return elements(elems), err
	})
}

func openingsCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "openings", "List the doors and windows of a room", func(ctx context.Context, a *app, id string) (any, error) {
		return a.engine.RoomOpenings(ctx, id)
	})
}

func statsCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "stats", "Count floors, rooms, doors and windows below a building", func(ctx context.Context, a *app, id string) (any, error) {
		return a.aggregator.ElementStatistics(ctx, id)
	})
}

func capacityCmd(wrap wrapFunc) *cobra.Command {
	return queryCmd(wrap, "capacity", "Summarize room counts and capacity by room type", func(ctx context.Context, a *app, id string) (any, error) {
		return a.aggregator.RoomCapacityReport(ctx, id)
	})
}

func pathCmd(wrap wrapFunc) *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "path FROM TO",
		Short: "Find a shortest path between two elements",
		Args:  cobra.ExactArgs(2),
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			from, to := args[0], args[1]
			path, err := a.engine.FindPath(ctx, from, to)
			if err != nil {
				return err
			}
			resp := api.PathResponse{From: from, To: to, Found: len(path) > 0, Path: path}
			if resp.Found {
				resp.Hops = len(path) - 1
				if resolve {
					if resp.Elements, err = a.engine.ResolvePath(ctx, path); err != nil {
						return err
					}
				}
			}
			return a.printJSON(resp)
		}),
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "include the elements along the path")
	return cmd
}

func metadataCmd(wrap wrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Count vertices by type and edges by kind",
		Args:  cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			md, err := a.aggregator.GraphMetadata(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(md)
		}),
	}
}
