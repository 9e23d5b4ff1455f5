package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybird/querybird/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.LoadFile(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	fmt.Printf("\n%s querybird is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Set llm.apiKey in %s, or export OPENAI_API_KEY\n", cfgPath)
	fmt.Println("     (Azure: AZURE_OPENAI_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT_NAME)")
	fmt.Println("  2. Point database.dsn at the employees database, or export DB_CONNECTION")
	fmt.Println("  3. querybird setup")
	fmt.Printf("  4. Ask: querybird agent -m \"How many employees are there?\"\n")
	return nil
}
