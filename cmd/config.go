package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vempat/vempat/internal/config"
	"github.com/vempat/vempat/internal/output"
	"github.com/vempat/vempat/internal/suggest"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show and change settings",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show effective settings",
	Long:    `Values are resolved from VEMPAT_* environment variables, then config.json, then defaults.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := config.Keys()
		values := make(map[string]string, len(keys))
		for _, k := range keys {
			v, err := config.Effective(k)
			if err != nil {
				return fail(err)
			}
			values[k] = v
		}
		return printJSONOr(cmd, values, func() {
			for _, k := range keys {
				fmt.Printf("%-22s %s\n", k, values[k])
			}
		})
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one effective setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.Effective(args[0])
		if err != nil {
			return unknownKey(args[0], err)
		}
		fmt.Println(v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if err := config.Set(key, val); err != nil {
			if _, kerr := config.Effective(key); kerr != nil {
				return unknownKey(key, kerr)
			}
			output.Error("%v", err)
			return err
		}
		output.Success("Set %s", key)
		return nil
	},
}

// unknownKey reports err with a did-you-mean hint and the valid keys.
func unknownKey(key string, err error) error {
	output.Error("%v%s", err, suggest.Hint(key, config.Keys()))
	fmt.Println("Valid keys:", strings.Join(config.Keys(), ", "))
	return err
}

func init() {
	configShowCmd.Flags().Bool("json", false, "Output as JSON")
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
