package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/wellca/internal/repository/mongodb"
	"github.com/mamadbah2/wellca/internal/repository/sheets"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

func newWeeklyCmd(opts *globalOptions) *cobra.Command {
	var history int64

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Generate and archive the weekly report now",
		Long: `Run the scheduled weekly digest immediately: aggregate the last seven days,
store the snapshot in MongoDB and append it to the reports sheet when those
are configured. With --history, list archived reports instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := cmd.Context()

			var sheetsRepo sheets.Repository
			if cfg.Sheets.Enabled() {
				repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, log.Named("repo.sheets"))
				if err != nil {
					return err
				}
				sheetsRepo = repo
			}

			var snapshotRepo mongodb.Repository
			if cfg.MongoDB.Enabled() {
				repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
				if err != nil {
					return err
				}
				defer func() { _ = repo.Close(ctx) }()
				snapshotRepo = repo
			}

			client := newClient(ctx, cmd, cfg, false)
			svc := reporting.NewService(client, sheetsRepo, snapshotRepo, cfg.Reporting.Location(), log.Named("svc.reporting"))

			if history > 0 {
				snapshots, err := svc.History(ctx, history)
				if err != nil {
					return err
				}
				for _, s := range snapshots {
					fmt.Fprintln(cmd.OutOrStdout(), s.Summary)
				}
				return nil
			}

			snapshot, err := svc.GenerateWeeklyReport(ctx, nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snapshot.Summary)
			return nil
		},
	}

	cmd.Flags().Int64Var(&history, "history", 0, "list this many archived reports instead of generating one")
	return cmd
}
