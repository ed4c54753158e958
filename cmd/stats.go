package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/output"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"dashboard"},
	Short:   "Revenue, inventory value, low stock and sync status",
	GroupID: "sales",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.repo.Stats(ctx)
			if err != nil {
				return err
			}
			low, err := a.repo.LowStock(ctx)
			if err != nil {
				return err
			}
			qs, err := a.repo.QueueInfo(ctx)
			if err != nil {
				return err
			}

			data := struct {
				Business models.BusinessStats `json:"business"`
				LowStock []*models.Product    `json:"lowStock"`
				Queue    models.QueueStats    `json:"queue"`
			}{st, low, qs}

			return printJSONOr(cmd, data, func() {
				fmt.Print(output.FormatStats(st))
				if len(low) > 0 {
					fmt.Println()
					fmt.Println(output.SectionHeader("LOW STOCK"))
					for _, p := range low {
						fmt.Println(output.FormatProductShort(p))
					}
				}
				fmt.Println()
				fmt.Println(output.FormatQueueStats(qs))
			})
		})
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}
