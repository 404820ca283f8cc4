package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/app"
	"github.com/grez-lucas/portal-scraper/internal/cli"
	"github.com/grez-lucas/portal-scraper/internal/config"
	"github.com/grez-lucas/portal-scraper/internal/preview"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	var (
		kind    string
		account string
		amount  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load every tab and serve the pages on a local port",
		Long: `serve loads news and tariffs, signs in when credentials are available to add
the accounts and statistics tabs, and serves each page at /tabs/{tab}. With
--account and --amount it also checks a payment, posted by /payment/redirect.`,
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
			ctx := cmd.Context()

			for _, step := range []struct {
				desc   string
				action app.Action
				start  func() error
			}{
				{"Загрузка новостей...", app.ActionNews, c.ctrl.LoadNews},
				{"Загрузка тарифов...", app.ActionTariffs, c.ctrl.LoadTariffs},
			} {
				if _, err := c.do(ctx, step.desc, step.action, step.start); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(portal.UserMessage(err)))
				}
			}

			if _, err := c.login(ctx); err != nil {
				if !errors.Is(err, config.ErrMissingCredentials) {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(portal.UserMessage(err)))
				}
			} else if _, err := c.do(ctx, "Загрузка статистики...", app.ActionStatistics, func() error {
				return c.ctrl.LoadStatistics(reportKind)
			}); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(portal.UserMessage(err)))
			}

			if account != "" && amount != "" {
				c.ctrl.SetPaymentAccount(account)
				c.ctrl.SetPaymentAmount(amount)
				if ev, err := c.do(ctx, "Проверка платежа...", app.ActionCheckPayment, c.ctrl.CheckPayment); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(portal.UserMessage(err)))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), cli.QuoteSummary(ev.Quote))
				}
			}

			return serve(ctx, cmd, viper.GetString(config.KeyPreviewAddr), preview.New(c.ctrl, c.renderer).Router())
		},
	}
	cmd.Flags().String("addr", config.DefaultPreviewAdr, "listen address")
	cmd.Flags().StringVar(&kind, "kind", portal.ReportTraffic.String(), "report kind for the statistics tab")
	cmd.Flags().StringVar(&account, "account", "", "contract number to check a payment for")
	cmd.Flags().StringVar(&amount, "amount", "", "payment amount in roubles")
	_ = viper.BindPFlag(config.KeyPreviewAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("http://"+addr+"/tabs/"+string(portal.TabHome)))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down preview server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
