package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relstore/relstore/internal/store"
)

func newCountCmd() *cobra.Command {
	var distinct string

	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows of a resolved table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, family, logger, err := openFamily(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db, family, logger)
			n, err := st.Count(cmd.Context(), args[0], store.CountConfig{DistinctColumn: distinct})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&distinct, "distinct", "", "count distinct values of this column")

	return cmd
}
