package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"varlens/internal/auth"
)

var (
	tokenFormat string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the admin API token",
	Long: `Create and inspect the bearer token protecting the loopback admin API.

Only the bcrypt hash of the token is stored on disk; the raw token is
shown once at creation time.

Examples:
  varlens token new
  varlens token show`,
}

var tokenNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new admin token",
	Long: `Generate a new admin token and store its hash.

Any previously provisioned token is invalidated.`,
	Run: runTokenNew,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show admin token provisioning state",
	Run:   runTokenShow,
}

func init() {
	tokenCmd.PersistentFlags().StringVar(&tokenFormat, "format", "human", "Output format (json, human)")

	tokenCmd.AddCommand(tokenNewCmd)
	tokenCmd.AddCommand(tokenShowCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenNew(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	store := auth.NewStore(cfg.AdminTokenFile())

	replaced := store.Exists()

	rawToken, err := store.Rotate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating token: %v\n", err)
		os.Exit(1)
	}

	if tokenFormat == "json" {
		printJSON(map[string]any{
			"token":    rawToken,
			"file":     store.Path(),
			"replaced": replaced,
		})
		return
	}

	fmt.Println("Admin token created:")
	fmt.Println()
	fmt.Printf("  Token: %s\n", rawToken)
	fmt.Printf("  File:  %s\n", store.Path())
	fmt.Println()
	fmt.Println("  IMPORTANT: Store this token securely. It will not be shown again.")
	fmt.Println("  Pass it via --token or VARLENS_ADMIN_TOKEN to admin commands.")
	if replaced {
		fmt.Println()
		fmt.Println("  The previous token is now invalid.")
	}
}

func runTokenShow(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	store := auth.NewStore(cfg.AdminTokenFile())

	provisioned := store.Exists()

	if tokenFormat == "json" {
		printJSON(map[string]any{
			"provisioned": provisioned,
			"file":        store.Path(),
		})
		return
	}

	if provisioned {
		fmt.Printf("Admin token provisioned (hash at %s).\n", store.Path())
		fmt.Println("The raw token cannot be recovered; run 'varlens token new' to replace it.")
	} else {
		fmt.Println("No admin token provisioned.")
		fmt.Println("Run 'varlens token new' to create one.")
	}
}
