package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hirafetch/pkg/codes"
	"hirafetch/pkg/ui"
)

var codesCmd = &cobra.Command{
	Use:   "codes [table]",
	Short: "Show the region, department and class code tables",
	Long: `Show the code tables used to translate filter names into API codes.

Without an argument the available tables are listed. With a table name
(sido, sggu, dgsbjt, cl) every name and code in it is printed.`,
	Example: `  hirafetch codes
  hirafetch codes dgsbjt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCodes,
}

func init() {
	rootCmd.AddCommand(codesCmd)
}

func runCodes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	set, err := codes.Load(cfg.Codes.File)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		for _, name := range set.Names() {
			table, _ := set.Table(name)
			ui.PrintInfo(name, fmt.Sprintf("%s (%d entries)", table.Description, len(table.Entries)))
		}
		return nil
	}

	table, ok := set.Table(args[0])
	if !ok {
		return fmt.Errorf("unknown code table: %s", args[0])
	}
	ui.PrintHighlight(table.Description)
	for _, e := range table.Entries {
		ui.PrintInfo(e.Code, e.Name)
	}
	return nil
}
