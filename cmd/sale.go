package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/repository"
)

var saleCmd = &cobra.Command{
	Use:     "sale",
	Aliases: []string{"sales"},
	Short:   "Record and list sales",
	GroupID: "sales",
}

var saleRecordCmd = &cobra.Command{
	Use:     "record <product-id> <quantity>",
	Aliases: []string{"add", "sell"},
	Short:   "Check out bags of a product",
	Long: `Record a sale. Stock is decremented and an "out" movement is written
together with the sale; the sale is refused if stock would go negative.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fail(fmt.Errorf("quantity %q is not a number", args[1]))
		}
		customer, _ := cmd.Flags().GetString("customer")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			sale, err := a.repo.RecordSale(ctx, repository.SaleInput{
				ProductID:    args[0],
				Quantity:     qty,
				CustomerName: customer,
			})
			if err != nil {
				return err
			}
			output.Success("Sold %d × %s for %s", sale.Quantity, sale.ProductName, output.Currency(sale.TotalPrice))
			return nil
		})
	},
}

var saleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sales, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			sales, err := a.repo.ListSales(ctx)
			if err != nil {
				return err
			}
			if limit > 0 && len(sales) > limit {
				sales = sales[:limit]
			}
			return printJSONOr(cmd, sales, func() {
				if len(sales) == 0 {
					fmt.Println("No sales")
					return
				}
				for _, s := range sales {
					fmt.Println(output.FormatSale(s))
				}
			})
		})
	},
}

func init() {
	saleRecordCmd.Flags().StringP("customer", "c", "", "Customer name (default walk-in)")
	saleListCmd.Flags().IntP("limit", "n", 0, "Show at most n sales")
	saleListCmd.Flags().Bool("json", false, "Output as JSON")

	saleCmd.AddCommand(saleRecordCmd, saleListCmd)
	rootCmd.AddCommand(saleCmd)
}
