package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/dateparse"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/suggest"
)

var poCmd = &cobra.Command{
	Use:     "po",
	Aliases: []string{"order", "orders"},
	Short:   "Purchase orders",
	GroupID: "inventory",
}

var poCreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add", "new"},
	Short:   "Draft a purchase order",
	Example: `  vempat po create --supplier s-1 --item p-1:20:17500 --item p-2:10:16000 --expected 2024-06-01`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		supplierID, _ := cmd.Flags().GetString("supplier")
		specs, _ := cmd.Flags().GetStringArray("item")
		expected, _ := cmd.Flags().GetString("expected")
		notes, _ := cmd.Flags().GetString("notes")

		items, err := parseItems(specs)
		if err != nil {
			return fail(err)
		}
		if expected != "" {
			if expected, err = dateparse.NotBefore(expected, time.Now()); err != nil {
				return fail(fmt.Errorf("--expected: %w", err))
			}
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			for i := range items {
				if p, err := a.repo.GetProduct(ctx, items[i].ProductID); err == nil {
					items[i].ProductName = p.Brand + " " + string(p.Type)
				}
			}
			o := &models.PurchaseOrder{
				SupplierID:           supplierID,
				Items:                items,
				ExpectedDeliveryDate: expected,
				Notes:                notes,
			}
			if err := a.repo.CreatePurchaseOrder(ctx, o); err != nil {
				return err
			}
			output.Success("Created %s for %s (%s)", o.PONumber, output.Currency(o.TotalAmount), o.ID)
			return nil
		})
	},
}

var poReceiveCmd = &cobra.Command{
	Use:   "receive <id>",
	Short: "Mark an order received and book its items into stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			o, err := a.repo.ReceivePurchaseOrder(ctx, args[0])
			if err != nil {
				return err
			}
			output.Success("Received %s: %d lines booked in", o.PONumber, len(o.Items))
			return nil
		})
	},
}

var poStatusCmd = &cobra.Command{
	Use:   "status <id> <draft|sent|received|cancelled>",
	Short: "Move an order to another status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := parsePOStatus(args[1])
		if err != nil {
			return fail(err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			o, err := a.repo.SetPurchaseOrderStatus(ctx, args[0], status)
			if err != nil {
				return err
			}
			output.Success("%s is now %s", o.PONumber, output.FormatPOStatus(o.Status))
			return nil
		})
	},
}

var poDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a purchase order",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.repo.DeletePurchaseOrder(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Deleted order %s", args[0])
			return nil
		})
	},
}

var poListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List purchase orders, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status models.POStatus
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			var err error
			if status, err = parsePOStatus(s); err != nil {
				return fail(err)
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			orders, err := a.repo.ListPurchaseOrders(ctx, status)
			if err != nil {
				return err
			}
			return printJSONOr(cmd, orders, func() {
				if len(orders) == 0 {
					fmt.Println("No purchase orders")
					return
				}
				for _, o := range orders {
					fmt.Println(output.FormatPurchaseOrder(o))
				}
			})
		})
	},
}

// parseItems parses "productID:quantity:unitPrice" specs.
func parseItems(specs []string) ([]models.POItem, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --item is required")
	}
	items := make([]models.POItem, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("item %q: want productID:quantity:unitPrice", spec)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("item %q: quantity must be a positive number", spec)
		}
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("item %q: bad unit price", spec)
		}
		items = append(items, models.POItem{ProductID: parts[0], Quantity: qty, UnitPrice: price})
	}
	return items, nil
}

func parsePOStatus(s string) (models.POStatus, error) {
	switch st := models.POStatus(strings.ToLower(s)); st {
	case models.POStatusDraft, models.POStatusSent, models.POStatusReceived, models.POStatusCancelled:
		return st, nil
	}
	statuses := []string{string(models.POStatusDraft), string(models.POStatusSent), string(models.POStatusReceived), string(models.POStatusCancelled)}
	return "", fmt.Errorf("unknown order status %q%s", s, suggest.Hint(s, statuses))
}

func init() {
	poCreateCmd.Flags().String("supplier", "", "Supplier id (required)")
	poCreateCmd.Flags().StringArray("item", nil, "Order line productID:quantity:unitPrice (repeatable)")
	poCreateCmd.Flags().String("expected", "", "Expected delivery: YYYY-MM-DD, DD/MM/YYYY, +7d, friday")
	poCreateCmd.Flags().String("notes", "", "Notes for the supplier")
	_ = poCreateCmd.MarkFlagRequired("supplier")

	poListCmd.Flags().String("status", "", "Only orders in this status")
	poListCmd.Flags().Bool("json", false, "Output as JSON")

	poCmd.AddCommand(poCreateCmd, poReceiveCmd, poStatusCmd, poDeleteCmd, poListCmd)
	rootCmd.AddCommand(poCmd)
}
