package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create sample projects in an empty database",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.DB.SeedSampleProjects(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("Database already has projects, nothing seeded.")
		return nil
	}
	fmt.Printf("🌱 Created %d sample projects\n", n)
	return nil
}
