package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yapily/ipisp/internal/api"
	"github.com/yapily/ipisp/internal/config"
	"github.com/yapily/ipisp/internal/prefs"
)

// --- prefs ---

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or change stored preferences",
}

var prefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		raw, err := client.invoke(cmd.Context(), client.prefsChannel, "getAll", nil)
		if err != nil {
			return err
		}

		var all map[string]any
		if err := decodeResult(raw, &all); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		}

		if len(all) == 0 {
			printWarning("No preferences stored")
			return nil
		}
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(stdout, "  %s = %s\n", bold(k), formatValue(all[k]))
		}
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Long: `Set a preference.

Examples:
  ipisp prefs set count 42 --type int
  ipisp prefs set onboarded true --type bool
  ipisp prefs set tags '["a","b"]' --type string_list`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]
		typ, _ := cmd.Flags().GetString("type")

		v, err := api.ParseValue(typ, raw)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := callMutator(cmd, client, setterMethod(v), map[string]any{
			"key":   key,
			"value": prefs.Interface(v),
		}); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, raw)
		return nil
	},
}

var prefsRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := callMutator(cmd, client, "remove", map[string]any{"key": args[0]}); err != nil {
			return err
		}

		printSuccess("Removed %s", args[0])
		return nil
	},
}

var prefsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every preference in the namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored preferences. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := callMutator(cmd, client, "clear", nil); err != nil {
			return err
		}

		printSuccess("All preferences cleared")
		return nil
	},
}

func init() {
	prefsListCmd.Flags().Bool("json", false, "print preferences as JSON")
	prefsSetCmd.Flags().String("type", "string", "value type: bool, int, double, string or string_list")
	prefsClearCmd.Flags().Bool("confirm", false, "confirm clearing all preferences")
	prefsCmd.AddCommand(prefsListCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsRemoveCmd)
	prefsCmd.AddCommand(prefsClearCmd)
}

// callMutator invokes a preferences mutator. A false result means the
// write was not persisted.
func callMutator(cmd *cobra.Command, client *apiClient, method string, args map[string]any) error {
	raw, err := client.invoke(cmd.Context(), client.prefsChannel, method, args)
	if err != nil {
		return err
	}
	var ok bool
	if err := decodeResult(raw, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s was not persisted", method)
	}
	return nil
}

func setterMethod(v prefs.Value) string {
	switch v.Kind() {
	case prefs.KindBool:
		return "setBool"
	case prefs.KindInt, prefs.KindBigInt:
		return "setInt"
	case prefs.KindDouble:
		return "setDouble"
	case prefs.KindStringList:
		return "setStringList"
	default:
		return "setString"
	}
}

func decodeResult(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// --- intent ---

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Deliver navigation intents and read the pending payment token",
}

var intentDeliverCmd = &cobra.Command{
	Use:   "deliver <uri>",
	Short: "Deliver a deep-link URI as the launch intent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/intents", map[string]string{"data": args[0]})
		if err != nil {
			return err
		}

		var result struct {
			TokenFound bool `json:"token_found"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.TokenFound {
			printSuccess("Payment token captured")
		} else {
			printWarning("No payment token in %s", args[0])
		}
		return nil
	},
}

var intentTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Print and consume the pending payment token",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		raw, err := client.invoke(cmd.Context(), client.paymentChannel, "getPaymentJWT", nil)
		if err != nil {
			return err
		}

		var token *string
		if err := decodeResult(raw, &token); err != nil {
			return err
		}
		if token == nil {
			printWarning("No pending payment token")
			return nil
		}
		fmt.Fprintln(stdout, *token)
		return nil
	},
}

func init() {
	intentCmd.AddCommand(intentDeliverCmd)
	intentCmd.AddCommand(intentTakeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", bold(k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
