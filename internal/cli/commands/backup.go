package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentforge/gathersync/internal/gather"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot every reachable source payload to the snapshot directory",
		Long: `Walk all accounts and projects visible to the configured credentials and
save each payload (projects, templates, statuses, items and file records)
as a JSON snapshot. The snapshots feed later offline imports.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)
			logger := getLogger(ctx)

			// Snapshot saving is the whole point of a backup run.
			client := gather.NewClient(cfg, logger, gather.WithSnapshotSaving())

			if _, err := client.Me(ctx); err != nil {
				return err
			}
			accounts, err := client.Accounts(ctx)
			if err != nil {
				return err
			}

			var projectCount, itemCount int
			for _, account := range accounts {
				projects, err := client.Projects(ctx, account.ID)
				if err != nil {
					return err
				}
				for _, project := range projects {
					log := logger.With("project", project.Name)
					if _, err := client.Templates(ctx, project.ID); err != nil {
						log.Warn("failed to back up templates", "error", err)
					}
					if _, err := client.Statuses(ctx, project.ID); err != nil {
						log.Warn("failed to back up statuses", "error", err)
					}
					items, err := client.Items(ctx, project.ID)
					if err != nil {
						log.Warn("failed to back up items", "error", err)
					} else {
						itemCount += len(items)
					}
					if _, err := client.FilesByProject(ctx, project.ID); err != nil {
						log.Warn("failed to back up file records", "error", err)
					}
					projectCount++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d projects (%d items) to %s\n",
				projectCount, itemCount, cfg.SnapshotDir)
			return nil
		},
	}
}
