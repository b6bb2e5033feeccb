package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peopleops/internal/importer"
)

// importCmd loads employee CSV exports into the store.
var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Import employee CSV exports, replacing existing HR data",
	Long: `Reads every .csv file in the directory, builds employee records from the
name/title/department columns (header names are matched loosely), and
replaces the store contents in one transaction. Transfer history and
feedback are synthesized from the imported roster.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := importer.New(st).Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		logger.Debug("Import finished",
			zap.Strings("files", result.Files),
			zap.Int("skipped", result.Skipped))

		fmt.Printf("Imported %d employees from %d files (%d transfers, %d feedback entries synthesized)\n",
			result.Employees, len(result.Files), result.Transfers, result.Feedback)
		for _, w := range result.Warnings {
			fmt.Printf("⚠️  %s\n", w)
		}
		return nil
	},
}

// seedCmd populates an empty store with deterministic sample data.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed sample HR data into an empty database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		n, err := st.Seed(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			count, err := st.Headcount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database already has %d employees; nothing to do\n", count)
			return nil
		}
		fmt.Printf("Seeded %d sample employees\n", n)
		return nil
	},
}
