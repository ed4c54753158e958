package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/suggest"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"products", "p"},
	Short:   "Manage feed products",
	GroupID: "inventory",
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product",
	Example: `  vempat product add --brand "Top Feeds" --type Starter --weight 25 --price 18500 --stock 40 --min-stock 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &models.Product{}
		if err := applyProductFlags(cmd.Flags(), p); err != nil {
			return fail(err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.repo.CreateProduct(ctx, p); err != nil {
				return err
			}
			output.Success("Added %s (%s)", p.Brand, p.ID)
			return nil
		})
	},
}

var productUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a product",
	Long:  `Only the flags given are changed; the rest of the product is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.repo.GetProduct(ctx, args[0])
			if err != nil {
				return err
			}
			if err := applyProductFlags(cmd.Flags(), p); err != nil {
				return err
			}
			if err := a.repo.UpdateProduct(ctx, p); err != nil {
				return err
			}
			output.Success("Updated %s", p.ID)
			return nil
		})
	},
}

var productDeleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete products",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			for _, id := range args {
				if err := a.repo.DeleteProduct(ctx, id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				output.Success("Deleted %s", id)
			}
			return nil
		})
	},
}

var productListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List products",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		low, _ := cmd.Flags().GetBool("low")
		search, _ := cmd.Flags().GetString("search")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				products []*models.Product
				err      error
			)
			switch {
			case search != "":
				products, err = a.repo.SearchProducts(ctx, search)
			case brand != "":
				products, err = a.repo.ProductsByBrand(ctx, brand)
			case low:
				products, err = a.repo.LowStock(ctx)
			default:
				products, err = a.repo.ListProducts(ctx)
			}
			if err != nil {
				return err
			}
			if low && (search != "" || brand != "") {
				products = lowOnly(products)
			}
			return printJSONOr(cmd, products, func() {
				if len(products) == 0 {
					fmt.Println("No products")
					return
				}
				for _, p := range products {
					fmt.Println(output.FormatProductShort(p))
				}
			})
		})
	},
}

var productShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.repo.GetProduct(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSONOr(cmd, p, func() {
				fmt.Print(output.FormatProductLong(p))
			})
		})
	},
}

// applyProductFlags copies the flags the user actually set onto p.
func applyProductFlags(flags *pflag.FlagSet, p *models.Product) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "brand":
			p.Brand = f.Value.String()
		case "type":
			p.Type, err = parseFeedType(f.Value.String())
		case "particle-size":
			p.ParticleSize = f.Value.String()
		case "protein":
			p.ProteinPercent, err = flags.GetFloat64("protein")
		case "weight":
			p.WeightKg, err = flags.GetFloat64("weight")
		case "price":
			p.PricePerBag, err = flags.GetFloat64("price")
		case "stock":
			p.Stock, err = flags.GetInt("stock")
		case "min-stock":
			p.MinStockThreshold, err = flags.GetInt("min-stock")
		}
	})
	return err
}

// parseFeedType accepts feed types case-insensitively.
func parseFeedType(s string) (models.FeedType, error) {
	names := make([]string, 0, 4)
	for _, t := range []models.FeedType{models.FeedStarter, models.FeedGrower, models.FeedFinisher, models.FeedNursery} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
		names = append(names, string(t))
	}
	return "", fmt.Errorf("unknown feed type %q%s", s, suggest.Hint(s, names))
}

func lowOnly(products []*models.Product) []*models.Product {
	out := products[:0:0]
	for _, p := range products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	for _, c := range []*cobra.Command{productAddCmd, productUpdateCmd} {
		c.Flags().String("brand", "", "Brand name")
		c.Flags().String("type", "", "Feed type: Starter, Grower, Finisher or Nursery")
		c.Flags().String("particle-size", "", "Particle size, e.g. 2mm")
		c.Flags().Float64("protein", 0, "Crude protein percent")
		c.Flags().Float64("weight", 0, "Bag weight in kg")
		c.Flags().Float64("price", 0, "Price per bag")
		c.Flags().Int("stock", 0, "Bags in stock")
		c.Flags().Int("min-stock", 0, "Reorder threshold")
	}

	productListCmd.Flags().String("brand", "", "Only this brand")
	productListCmd.Flags().Bool("low", false, "Only products at or below their threshold")
	productListCmd.Flags().StringP("search", "s", "", "Fuzzy search on brand, type and size")
	productListCmd.Flags().Bool("json", false, "Output as JSON")
	productShowCmd.Flags().Bool("json", false, "Output as JSON")

	productCmd.AddCommand(productAddCmd, productUpdateCmd, productDeleteCmd, productListCmd, productShowCmd)
	rootCmd.AddCommand(productCmd)
}
