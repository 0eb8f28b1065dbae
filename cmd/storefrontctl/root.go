package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fjod/electromart/internal/config"
	ordersrepo "github.com/fjod/electromart/internal/orders/repository"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	timeout time.Duration
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operations tool for the ElectroMart storefront",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline for the command")

	rootCmd.AddCommand(migrateOrdersCmd())
	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(recoverCmd())
	rootCmd.AddCommand(flushOutboxCmd())
	rootCmd.AddCommand(verifySignatureCmd())
	rootCmd.AddCommand(createIntentCmd())

	return rootCmd
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	level := "info"
	if verbose {
		level = "debug"
	}
	log := logger.New(cmd.ErrOrStderr(), level)
	ctx := logger.WithContext(cmd.Context(), log)
	return context.WithTimeout(ctx, timeout)
}

// openOrders connects to the order store named by the storefront configuration.
func openOrders(ctx context.Context, cfg *config.Config) (*ordersrepo.MongoRepository, func(), error) {
	db, err := ordersrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = ordersrepo.Disconnect(db, 5*time.Second) }
	return ordersrepo.NewMongoRepository(db), closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
