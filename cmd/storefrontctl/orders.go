package main

import (
	"fmt"

	"github.com/fjod/electromart/internal/config"
	"github.com/fjod/electromart/internal/events"
	ordersservice "github.com/fjod/electromart/internal/orders/service"
	"github.com/fjod/electromart/pkg/logger"
	"github.com/spf13/cobra"
)

func migrateOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-orders",
		Short: "Upgrade legacy order documents to the current schema",
		Long: `Rewrites every order document that has no schemaVersion into the current shape.
Documents keyed by an ObjectID are re-inserted under its hex form. Safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg, err := config.Read()
			if err != nil {
				return err
			}
			repo, closeFn, err := openOrders(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := repo.MigrateLegacy(ctx, logger.FromContext(ctx))
			if err != nil {
				return fmt.Errorf("migrate orders: %w", err)
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d legacy orders could not be upgraded", report.Failed, report.Scanned)
			}
			return nil
		},
	}
}

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Back-office order operations",
	}
	cmd.AddCommand(orderStatusCmd())
	return cmd
}

func orderStatusCmd() *cobra.Command {
	var (
		note       string
		correction bool
		noEvents   bool
	)
	cmd := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Move an order to a new lifecycle status",
		Long: `Appends one timeline entry and updates the current status.

Examples:
  storefrontctl order status 6f1c... SHIPPED --note "AWB 1234"
  storefrontctl order status 6f1c... PACKED --correction`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg, err := config.Read()
			if err != nil {
				return err
			}
			repo, closeFn, err := openOrders(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			var w events.Writer
			if !noEvents {
				kw := events.NewWriter(cfg.OrderTopic, cfg.KafkaBrokers...)
				defer kw.Close()
				w = kw
			}

			order, err := ordersservice.NewOrderService(repo, w).UpdateStatus(ctx, ordersservice.UpdateStatusRequest{
				OrderID:    args[0],
				Status:     args[1],
				Note:       note,
				Correction: correction,
			})
			if err != nil {
				return fmt.Errorf("update order %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note stored on the timeline entry")
	cmd.Flags().BoolVar(&correction, "correction", false, "allow moving to any status, including backwards")
	cmd.Flags().BoolVar(&noEvents, "no-events", false, "do not publish order.status_changed")

	return cmd
}
