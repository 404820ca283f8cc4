package main

import (
	"fmt"

	"github.com/grez-lucas/portal-scraper/internal/app"
	"github.com/grez-lucas/portal-scraper/internal/cli"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and list the contract accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			ev, err := c.login(cmd.Context())
			if err != nil {
				return userError(cmd, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.AccountSummary(ev.Accounts))
			return err
		},
	}
}

func newsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Render the provider news page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			ev, err := c.do(cmd.Context(), "Загрузка новостей...", app.ActionNews, c.ctrl.LoadNews)
			if err != nil {
				return userError(cmd, err)
			}
			return writeOutput(cmd, out, ev.Fragment.HTML)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the page to a file instead of stdout")
	return cmd
}

func tariffsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tariffs",
		Short: "Render the internet and TV tariffs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			ev, err := c.do(cmd.Context(), "Загрузка тарифов...", app.ActionTariffs, c.ctrl.LoadTariffs)
			if err != nil {
				return userError(cmd, err)
			}
			return writeOutput(cmd, out, ev.Fragment.HTML)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the page to a file instead of stdout")
	return cmd
}
