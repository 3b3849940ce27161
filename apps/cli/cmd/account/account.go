package accountcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	accountsservice "github.com/mukando-hq/storekeeper/domains/accounts/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
)

// Command groups account management helpers. These cover the cases the chat
// surface cannot: an owner locked out of their own device, or support acting
// on a store's behalf.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account utilities (list/reset-password/delete)",
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(resetPasswordCommand())
	cmd.AddCommand(deleteCommand())
	return cmd
}

func buildService(ctx context.Context, databaseURL, globalSchema string) (*accountsservice.Service, func(), error) {
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	store, err := persistence.NewAccountStore(pool, globalSchema)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, err
	}

	return accountsservice.New(store), func() { persistence.ClosePool(pool) }, nil
}

func listCommand() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
		schemaName   string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List accounts in a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, closePool, err := buildService(ctx, databaseURL, globalSchema)
			if err != nil {
				return err
			}
			defer closePool()

			accounts, err := svc.ListStaff(ctx, schemaName)
			if err != nil {
				return err
			}

			for _, account := range accounts {
				state := "active"
				if !account.Active {
					state = "inactive"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", account.Username, account.Role, state)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")
	c.Flags().StringVar(&schemaName, "partition", "", "partition schema name, e.g. tenant_12345")
	_ = c.MarkFlagRequired("partition")

	return c
}

func resetPasswordCommand() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
		username     string
	)

	c := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset an account's password and print the new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, closePool, err := buildService(ctx, databaseURL, globalSchema)
			if err != nil {
				return err
			}
			defer closePool()

			password, err := svc.ResetPassword(ctx, username)
			if err != nil {
				return fmt.Errorf("reset password: %w", err)
			}

			// Printed once; only the hash is stored.
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", username, password)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")
	c.Flags().StringVar(&username, "username", "", "account username")
	_ = c.MarkFlagRequired("username")

	return c
}

func deleteCommand() *cobra.Command {
	var (
		databaseURL  string
		globalSchema string
		username     string
	)

	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete a staff account (owners are protected)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, closePool, err := buildService(ctx, databaseURL, globalSchema)
			if err != nil {
				return err
			}
			defer closePool()

			if err := svc.DeleteAccount(ctx, username); err != nil {
				return fmt.Errorf("delete account: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", username)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&globalSchema, "global-schema", "storekeeper", "schema holding the shared tables")
	c.Flags().StringVar(&username, "username", "", "account username")
	_ = c.MarkFlagRequired("username")

	return c
}
