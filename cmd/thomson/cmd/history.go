package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/history"
	"github.com/solatis/thomson/internal/document"
	"github.com/solatis/thomson/internal/types"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transform runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			switch history.Status(status) {
			case "", history.StatusOK, history.StatusFailed:
			default:
				return fmt.Errorf("invalid --status %q (expected ok or failed)", status)
			}

			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			database, store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			runs, err := store.List(ctx, history.ListOptions{Limit: limit, Status: history.Status(status)})
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Run ID", "Created", "Origin", "Status", "Entries", "Bytes", "Duration (ms)", "Error")
			for _, run := range runs {
				row := []string{
					string(run.ID),
					run.CreatedAt.Local().Format(time.DateTime),
					string(run.Origin),
					string(run.Status),
					strconv.FormatInt(run.Entries, 10),
					strconv.FormatInt(run.OutputBytes, 10),
					strconv.FormatInt(run.DurationMs, 10),
					run.Error,
				}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", history.DefaultListLimit, "maximum number of runs to list")
	cmd.Flags().StringVar(&status, "status", "", "only list runs with this status (ok, failed)")

	cmd.AddCommand(newHistoryShowCmd(global), newHistoryPruneCmd(global))
	return cmd
}

func newHistoryShowCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print one recorded run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := types.ParseRunID(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			database, store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			run, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			encoded, err := document.Encode(run, true)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", encoded)
			return err
		},
	}
}

func newHistoryPruneCmd(global *globalOptions) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %v", olderThan)
			}

			cfg, logger, err := global.load(cmd)
			if err != nil {
				return err
			}
			database, store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			n, err := store.Prune(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs\n", n)
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "delete runs created before now minus this duration")
	return cmd
}
