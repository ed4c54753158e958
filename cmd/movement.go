package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/suggest"
)

var movementCmd = &cobra.Command{
	Use:     "movement",
	Aliases: []string{"movements", "stock"},
	Short:   "Stock movements and adjustments",
	GroupID: "inventory",
}

var movementAddCmd = &cobra.Command{
	Use:   "add <product-id> <in|out|adjustment> <quantity>",
	Short: "Move stock in or out, or set it to a counted level",
	Example: `  vempat movement add p-123 in 20 --notes "delivery"
  vempat movement add p-123 adjustment 37 --notes "stock take"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := parseMovementType(args[1])
		if err != nil {
			return fail(err)
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fail(fmt.Errorf("quantity %q is not a number", args[2]))
		}
		notes, _ := cmd.Flags().GetString("notes")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			mv, err := a.repo.AdjustStock(ctx, args[0], typ, qty, notes)
			if err != nil {
				return err
			}
			if mv == nil {
				output.Info("Stock already at %d, nothing recorded", qty)
				return nil
			}
			output.Success("Recorded %s of %d for %s", mv.Type, mv.Quantity, mv.ProductName)
			return nil
		})
	},
}

var movementListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stock movements",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, _ := cmd.Flags().GetString("product")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			mvs, err := a.repo.ListStockMovements(ctx, productID)
			if err != nil {
				return err
			}
			return printJSONOr(cmd, mvs, func() {
				if len(mvs) == 0 {
					fmt.Println("No stock movements")
					return
				}
				for _, m := range mvs {
					fmt.Println(output.FormatMovement(m))
				}
			})
		})
	},
}

var movementDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a movement record",
	Long:    `Deletes the movement entry only. Product stock is not changed.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.repo.DeleteStockMovement(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Deleted movement %s", args[0])
			return nil
		})
	},
}

func parseMovementType(s string) (models.MovementType, error) {
	switch t := models.MovementType(strings.ToLower(s)); t {
	case models.MovementIn, models.MovementOut, models.MovementAdjustment:
		return t, nil
	}
	return "", fmt.Errorf("unknown movement type %q (in, out or adjustment)%s",
		s, suggest.Hint(s, []string{"in", "out", "adjustment"}))
}

func init() {
	movementAddCmd.Flags().String("notes", "", "Free-text note")
	movementListCmd.Flags().String("product", "", "Only movements of this product")
	movementListCmd.Flags().Bool("json", false, "Output as JSON")

	movementCmd.AddCommand(movementAddCmd, movementListCmd, movementDeleteCmd)
	rootCmd.AddCommand(movementCmd)
}
