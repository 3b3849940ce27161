package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mukando-hq/storekeeper/platform/go/persistence"
)

// Command creates the shared schema with the accounts and partitions tables.
// Idempotent; the bot server also runs this at startup, the command exists for
// migrations run ahead of a deploy.
func Command() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the global schema and shared tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapGlobalSchema(ctx, pool, globalSchema); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "global schema %q ready\n", globalSchema)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	cmd.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")

	return cmd
}
