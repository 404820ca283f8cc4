package main

import (
	"fmt"
	"log/slog"

	"github.com/grez-lucas/portal-scraper/internal/app"
	"github.com/grez-lucas/portal-scraper/internal/cli"
	"github.com/grez-lucas/portal-scraper/internal/scraper/browser"
	"github.com/spf13/cobra"
)

func payCmd() *cobra.Command {
	var (
		account string
		amount  string
		out     string
		open    bool
		bin     string
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Check a payment and hand it to the bank gateway",
		Long: `pay looks the contract up on the provider's payment page and shows who it
belongs to. The bank redirect page is then written out, or with --open, loaded in
a browser window where the card details are entered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			c.ctrl.SetPaymentAccount(account)
			c.ctrl.SetPaymentAmount(amount)

			ev, err := c.do(cmd.Context(), "Проверка платежа...", app.ActionCheckPayment, c.ctrl.CheckPayment)
			if err != nil {
				return userError(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.QuoteSummary(ev.Quote))

			page, err := c.ctrl.SubmitPayment()
			if err != nil {
				return userError(cmd, err)
			}
			if !open {
				return writeOutput(cmd, out, page)
			}

			launcher := browser.New(
				browser.WithHeadless(false),
				browser.WithBin(bin),
				browser.WithLogger(slog.Default()),
			)
			tab, err := launcher.OpenPaymentPage(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("failed to open bank page: %w", err)
			}
			defer func() {
				if err := tab.Close(); err != nil {
					slog.Warn("Failed to close browser", "error", err)
				}
			}()

			if url, title, err := tab.Info(); err == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf("%s (%s)", title, url)))
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo("Нажмите Ctrl+C, чтобы закрыть окно."))
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "contract number (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in roubles (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the redirect page to a file instead of stdout")
	cmd.Flags().BoolVar(&open, "open", false, "open the bank page in a browser window")
	cmd.Flags().StringVar(&bin, "browser-bin", "", "browser executable for --open (default: download)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
