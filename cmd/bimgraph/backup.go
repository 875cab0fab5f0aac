package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-bim/pkg/backup"
)

func newBackuper(ctx context.Context, a *app) (*backup.Backuper, error) {
	if a.cfg.Backup.Bucket == "" {
		return nil, backup.ErrNoBucket
	}
	client, err := backup.NewS3Client(ctx, a.cfg.Backup)
	if err != nil {
		return nil, err
	}
	return backup.New(client, a.cfg.Backup, a.store, a.loader, a.logger, a.metrics)
}

func backupCmd(wrap wrapFunc) *cobra.Command {
	var loadID string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload a JSON snapshot of the graph to S3",
		Long: `Export every vertex and edge and upload it to
s3://<backup.bucket>/<backup.prefix>/<load-id>.json.`,
		Args: cobra.NoArgs,
		RunE: wrap(func(ctx context.Context, a *app, args []string) error {
			if err := a.ensureLoaded(ctx); err != nil {
				return err
			}
			b, err := newBackuper(ctx, a)
			if err != nil {
				return err
			}
			id := loadID
			if id == "" {
				if last := a.loader.Last(); last != nil {
					id = last.LoadID
				}
			}
			info, err := b.Backup(ctx, id)
			if err != nil {
				return err
			}
			return a.printJSON(info)
		}),
	}
	cmd.Flags().StringVar(&loadID, "load-id", "", "object name (default: id of the current load)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List uploaded snapshots, newest first",
			Args:  cobra.NoArgs,
			RunE: wrap(func(ctx context.Context, a *app, args []string) error {
				b, err := newBackuper(ctx, a)
				if err != nil {
					return err
				}
				infos, err := b.List(ctx)
				if err != nil {
					return err
				}
				if infos == nil {
					infos = []backup.Info{}
				}
				return a.printJSON(infos)
			}),
		},
		&cobra.Command{
			Use:   "restore KEY",
			Short: "Replace the stored graph with an uploaded snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: wrap(func(ctx context.Context, a *app, args []string) error {
				b, err := newBackuper(ctx, a)
				if err != nil {
					return err
				}
				info, err := b.Restore(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printJSON(info)
			}),
		},
	)
	return cmd
}
