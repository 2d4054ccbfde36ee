package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentforge/gathersync/internal/gather"
	"github.com/contentforge/gathersync/internal/importer"
	"github.com/contentforge/gathersync/pkg/store"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	DryRun bool
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the configured project into the content store",
		Long: `Fetch all items of the configured source project and import them into
the target store, applying template mappings, field pipelines, status
rules and the existing-item policy.`,
		Example: `  # Import using ./gathersync.yaml
  gathersync import

  # Update previously imported items instead of duplicating them
  gathersync import --existing-items update

  # Import including attached files
  gathersync import --download-files`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve the project and report item counts without writing")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)

	client := gather.NewClient(cfg, logger)

	if opts.DryRun {
		project, err := client.ProjectByName(ctx, cfg.Project)
		if err != nil {
			return err
		}
		items, err := client.Items(ctx, project.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project %q (%s): %d items\n", project.Name, project.ID, len(items))
		return nil
	}

	st, err := store.New(cfg.Target, logger)
	if err != nil {
		return err
	}
	if err := st.Connect(ctx, cfg.Target); err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	start := time.Now()
	imp := importer.New(cfg, client, st, logger)
	report, err := imp.Run(ctx)
	if err != nil {
		return err
	}

	report.Render(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n", time.Since(start).Round(time.Millisecond))

	if report.Failed > 0 {
		return fmt.Errorf("%d items failed to import", report.Failed)
	}
	return nil
}
