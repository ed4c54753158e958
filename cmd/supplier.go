package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
)

var supplierCmd = &cobra.Command{
	Use:     "supplier",
	Aliases: []string{"suppliers"},
	Short:   "Manage suppliers",
	GroupID: "inventory",
}

var supplierAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a supplier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &models.Supplier{}
		applySupplierFlags(cmd.Flags(), s)
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.repo.CreateSupplier(ctx, s); err != nil {
				return err
			}
			output.Success("Added supplier %s (%s)", s.Name, s.ID)
			return nil
		})
	},
}

var supplierUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a supplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, err := a.repo.GetSupplier(ctx, args[0])
			if err != nil {
				return err
			}
			applySupplierFlags(cmd.Flags(), s)
			if err := a.repo.UpdateSupplier(ctx, s); err != nil {
				return err
			}
			output.Success("Updated supplier %s", s.ID)
			return nil
		})
	},
}

var supplierDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a supplier",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.repo.DeleteSupplier(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Deleted supplier %s", args[0])
			return nil
		})
	},
}

var supplierListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List suppliers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			suppliers, err := a.repo.ListSuppliers(ctx)
			if err != nil {
				return err
			}
			return printJSONOr(cmd, suppliers, func() {
				if len(suppliers) == 0 {
					fmt.Println("No suppliers")
					return
				}
				for _, s := range suppliers {
					fmt.Println(output.FormatSupplier(s))
				}
			})
		})
	},
}

// applySupplierFlags copies the flags the user set onto s.
func applySupplierFlags(flags *pflag.FlagSet, s *models.Supplier) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "name":
			s.Name = f.Value.String()
		case "contact":
			s.ContactPerson = f.Value.String()
		case "email":
			s.Email = f.Value.String()
		case "phone":
			s.Phone = f.Value.String()
		case "address":
			s.Address = f.Value.String()
		case "city":
			s.City = f.Value.String()
		case "state":
			s.State = f.Value.String()
		case "zip":
			s.ZipCode = f.Value.String()
		case "terms":
			s.PaymentTerms = f.Value.String()
		case "price":
			s.PricePerBag, _ = flags.GetFloat64("price")
		case "product":
			s.Products, _ = flags.GetStringSlice("product")
		}
	})
}

func init() {
	for _, c := range []*cobra.Command{supplierAddCmd, supplierUpdateCmd} {
		c.Flags().String("name", "", "Company name")
		c.Flags().String("contact", "", "Contact person")
		c.Flags().String("email", "", "Contact email")
		c.Flags().String("phone", "", "Phone number")
		c.Flags().String("address", "", "Street address")
		c.Flags().String("city", "", "City")
		c.Flags().String("state", "", "State")
		c.Flags().String("zip", "", "Postal code")
		c.Flags().String("terms", "", "Payment terms, e.g. Net 30")
		c.Flags().Float64("price", 0, "Typical price per bag")
		c.Flags().StringSlice("product", nil, "Product ids this supplier carries (repeatable)")
	}
	supplierListCmd.Flags().Bool("json", false, "Output as JSON")

	supplierCmd.AddCommand(supplierAddCmd, supplierUpdateCmd, supplierDeleteCmd, supplierListCmd)
	rootCmd.AddCommand(supplierCmd)
}
