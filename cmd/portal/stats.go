package main

import (
	"github.com/grez-lucas/portal-scraper/internal/app"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var (
		out  string
		kind string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Render a usage report for the last three months",
		Long: `stats signs in and renders one cabinet report: traffic, payments or fee.
The report window always ends today and starts three calendar months earlier.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportKind, err := portal.ParseReportKind(kind)
			if err != nil {
				return err
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if _, err := c.login(cmd.Context()); err != nil {
				return userError(cmd, err)
			}

			ev, err := c.do(cmd.Context(), "Загрузка статистики...", app.ActionStatistics, func() error {
				return c.ctrl.LoadStatistics(reportKind)
			})
			if err != nil {
				return userError(cmd, err)
			}
			return writeOutput(cmd, out, ev.Fragment.HTML)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the page to a file instead of stdout")
	cmd.Flags().StringVar(&kind, "kind", portal.ReportTraffic.String(), "report kind (traffic, payments, fee)")
	return cmd
}
