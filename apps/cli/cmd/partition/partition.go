package partitioncmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tenantsprov "github.com/mukando-hq/storekeeper/domains/tenants/be/provisioning"
	tenantsservice "github.com/mukando-hq/storekeeper/domains/tenants/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
	"github.com/mukando-hq/storekeeper/platform/go/tenant"
)

// Command groups partition registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Partition utilities (list/provision/check)",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(provisionCommand())
	cmd.AddCommand(checkCommand())
	return cmd
}

func connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	return persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
}

func listCommand() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List registered partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := connect(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewPartitionStore(pool, globalSchema)
			if err != nil {
				return err
			}

			partitions, err := store.List(ctx)
			if err != nil {
				return err
			}

			for _, p := range partitions {
				status := "pending"
				if p.ProvisionedAt != nil {
					status = "provisioned " + p.ProvisionedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", p.OwnerIdentity, p.SchemaName, status)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")

	return c
}

func provisionCommand() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
		identity     int64
	)

	c := &cobra.Command{
		Use:   "provision",
		Short: "Register and provision a partition for an owner identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := connect(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewPartitionStore(pool, globalSchema)
			if err != nil {
				return err
			}

			svc := tenantsservice.New(store, tenantsprov.NewDBProvisioner(pool), zap.NewNop())
			space, err := svc.Ensure(ctx, identity)
			if err != nil {
				return fmt.Errorf("provision: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "partition %s ready\n", space.SchemaName)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")
	c.Flags().Int64Var(&identity, "identity", 0, "chat identity of the store owner")
	_ = c.MarkFlagRequired("identity")

	return c
}

func checkCommand() *cobra.Command {
	var (
		databaseURL string
		identity    int64
	)

	c := &cobra.Command{
		Use:   "check",
		Short: "Report whether a partition schema is fully provisioned",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := connect(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer persistence.ClosePool(pool)

			prov := tenantsprov.NewDBProvisioner(pool)
			space := tenant.Space{
				OwnerIdentity: identity,
				SchemaName:    tenant.BuildSchemaName(identity),
			}

			ok, err := prov.Check(ctx, space)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: missing or incomplete\n", space.SchemaName)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", space.SchemaName)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().Int64Var(&identity, "identity", 0, "chat identity of the store owner")
	_ = c.MarkFlagRequired("identity")

	return c
}
