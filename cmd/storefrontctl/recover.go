package main

import (
	"fmt"
	"time"

	"github.com/fjod/electromart/internal/checkout/publisher"
	checkoutrepo "github.com/fjod/electromart/internal/checkout/repository"
	checkoutservice "github.com/fjod/electromart/internal/checkout/service"
	"github.com/fjod/electromart/internal/config"
	"github.com/fjod/electromart/internal/events"
	ordersservice "github.com/fjod/electromart/internal/orders/service"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/spf13/cobra"
)

func recoverCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Write orders for checkouts that were paid but never completed",
		Long: `Runs one recovery pass: every checkout session stuck in PAYMENT_VERIFIED for longer
than --older-than gets its order written from the cart snapshot and is marked COMPLETED.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg, err := config.Read()
			if err != nil {
				return err
			}
			orders, closeFn, err := openOrders(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			checkouts, err := openCheckouts(cfg)
			if err != nil {
				return err
			}
			defer checkouts.Close()

			// recovery touches neither carts nor the gateway
			svc := checkoutservice.NewCheckoutService(checkouts, nil, ordersservice.NewOrderService(orders, nil), nil,
				checkoutservice.Settings{Currency: cfg.Currency})

			n, err := svc.RecoverStuckSessions(ctx, olderThan)
			if err != nil {
				return fmt.Errorf("recover: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recovered %d checkout session(s)\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 2*time.Minute, "only sessions verified at least this long ago")

	return cmd
}

func flushOutboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-outbox",
		Short: "Publish every pending outbox event once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg, err := config.Read()
			if err != nil {
				return err
			}
			checkouts, err := openCheckouts(cfg)
			if err != nil {
				return err
			}
			defer checkouts.Close()

			w := events.NewWriter(cfg.OrderTopic, cfg.KafkaBrokers...)
			defer w.Close()

			n := publisher.NewOutboxPoller(checkouts, nil, w, 0, logger.FromContext(ctx)).Flush(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "published %d event(s)\n", n)
			return nil
		},
	}
}

func openCheckouts(cfg *config.Config) (*checkoutrepo.Repository, error) {
	checkouts, err := checkoutrepo.NewRepository(&checkoutrepo.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to checkout database: %w", err)
	}
	return checkouts, nil
}
