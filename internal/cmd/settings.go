package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change runtime settings",
	Long: `Settings live in settings.json under the data directory and take
precedence over environment configuration. The API key is always shown
redacted.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update settings fields",
	Long: `Update one or more settings fields. Only the flags you pass change;
everything else keeps its current value.`,
	RunE: runSettingsSet,
}

var settingsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check OpenRouter connectivity with the stored credentials",
	RunE:  runSettingsTest,
}

func init() {
	settingsSetCmd.Flags().String("api-key", "", "OpenRouter API key")
	settingsSetCmd.Flags().String("api-url", "", "OpenRouter API URL")
	settingsSetCmd.Flags().StringSlice("models", nil, "council model roster (comma separated)")
	settingsSetCmd.Flags().String("chairman", "", "synthesis model")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsTestCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	got, err := apiClient().GetSettings(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println("api key: ", emptyAs(got.OpenRouterAPIKey, "(unset)"))
	fmt.Println("api url: ", got.OpenRouterAPIURL)
	fmt.Println("chairman:", got.ChairmanModel)
	fmt.Println("council:")
	for _, model := range got.CouncilModels {
		fmt.Println("  -", model)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	var patch settings.Patch
	if cmd.Flags().Changed("api-key") {
		v, _ := cmd.Flags().GetString("api-key")
		patch.OpenRouterAPIKey = &v
	}
	if cmd.Flags().Changed("api-url") {
		v, _ := cmd.Flags().GetString("api-url")
		patch.OpenRouterAPIURL = &v
	}
	if cmd.Flags().Changed("models") {
		v, _ := cmd.Flags().GetStringSlice("models")
		patch.CouncilModels = &v
	}
	if cmd.Flags().Changed("chairman") {
		v, _ := cmd.Flags().GetString("chairman")
		patch.ChairmanModel = &v
	}

	updated, err := apiClient().UpdateSettings(cmd.Context(), patch)
	if err != nil {
		return err
	}
	fmt.Println("updated:", emptyAs(updated.ChairmanModel, "(unset)"), "chairing",
		strings.Join(updated.CouncilModels, ", "))
	return nil
}

func runSettingsTest(cmd *cobra.Command, args []string) error {
	result, err := apiClient().TestSettings(cmd.Context(), settings.Patch{})
	if err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("connection failed: %s", result.Error)
	}
	fmt.Printf("ok: %d models available\n", result.ModelCount)
	return nil
}

func emptyAs(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
