package cmd

import (
	"github.com/glimpse/glimpse/internal/database"
	"github.com/glimpse/glimpse/internal/reporter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:       "report [day|week|month]",
	Short:     "Show captures per application",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "week", "month"},
	RunE: func(cmd *cobra.Command, args []string) error {
		periodType := "day"
		if len(args) > 0 {
			periodType = args[0]
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.Database.Path)
		if err != nil {
			return errors.Wrap(err, "failed to connect to database")
		}
		defer db.Close()
		if err := db.Initialize(); err != nil {
			return err
		}

		report, err := reporter.New(database.NewRepository(db)).GenerateReport(periodType)
		if err != nil {
			return err
		}

		if reportJSON {
			out, err := reporter.FormatReportJSON(report)
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", out)
			return nil
		}
		printf(cmd, "%s", reporter.FormatReportText(report))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}
