package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relstore/relstore/internal/drift"
	"github.com/relstore/relstore/internal/model"
)

func newDriftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift <snapshot-file>",
		Short: "Compare a saved schema snapshot against the live database",
		Long: `Compare a schema family snapshot (as written by "relstore schema")
against the live database and report every difference. Breaking drift
means sessions built from the snapshot need a rebuild; the command
exits non-zero in that case.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			var snapshot model.SchemaFamily
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("parse snapshot %q: %w", args[0], err)
			}

			db, family, logger, err := openFamily(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			report := drift.Diff(&snapshot, family)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.HasBreaking {
				logger.Warn("breaking schema drift detected", "breaking", report.BreakingCount)
				return fmt.Errorf("%d breaking schema change(s) since the snapshot", report.BreakingCount)
			}
			return nil
		},
	}
}
