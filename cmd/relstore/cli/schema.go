package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Resolve and print the schema family as JSON",
		Long: `Introspect the database, resolve parent/child and peer relationships,
and print the complete schema family snapshot as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, family, _, err := openFamily(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(family)
		},
	}
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List resolved tables with their keys and relationships",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, family, _, err := openFamily(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			for _, name := range family.TableNames() {
				schema := family.Schemas[name]
				fmt.Fprintf(out, "%s (pk: %s)\n", name, schema.PK)
				if parents := family.ParentsOf(name); len(parents) > 0 {
					fmt.Fprintf(out, "  parents: %s\n", strings.Join(parents, ", "))
				}
				if children := family.ChildrenOf(name); len(children) > 0 {
					fmt.Fprintf(out, "  children: %s\n", strings.Join(children, ", "))
				}
				if peers := family.PeersOf(name); len(peers) > 0 {
					link, _ := family.TryPeerLinkTableOf(name)
					fmt.Fprintf(out, "  peers: %s (via %s)\n", strings.Join(peers, ", "), link)
				}
			}
			return nil
		},
	}
}
