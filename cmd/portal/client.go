package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/grez-lucas/portal-scraper/internal/app"
	"github.com/grez-lucas/portal-scraper/internal/cli"
	"github.com/grez-lucas/portal-scraper/internal/config"
	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/fetch"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal/chukotnet"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// client is one process-lifetime session: a scraper, the controller driving
// it and the goroutine applying completions.
type client struct {
	cfg      *config.Config
	ctrl     *app.Controller
	renderer *render.Renderer
	quiet    bool
	cancel   context.CancelFunc
	done     chan error
}

func newClient(cmd *cobra.Command) (*client, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	renderer := cli.Renderer(cfg.Theme)
	session := portal.NewSession()
	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithDefaultEncoding(cfg.ProviderEncoding),
		fetch.WithLogger(logger),
	)
	scraper := chukotnet.New(
		chukotnet.WithFetcher(fetcher),
		chukotnet.WithSession(session),
		chukotnet.WithRenderer(renderer),
		chukotnet.WithEndpoints(cfg.Endpoints),
		chukotnet.WithEncodings(cfg.ProviderEncoding, cfg.GatewayEncoding),
		chukotnet.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	c := &client{
		cfg:      cfg,
		ctrl:     app.New(ctx, scraper, session, renderer, app.WithLogger(logger)),
		renderer: renderer,
		quiet:    cfg.LogFormat == "json",
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() {
		c.done <- c.ctrl.Run(ctx)
	}()
	return c, nil
}

// do starts an action and waits for its event behind a spinner.
func (c *client) do(ctx context.Context, description string, action app.Action, start func() error) (app.Event, error) {
	if err := start(); err != nil {
		return app.Event{}, err
	}
	return cli.Spin(ctx, os.Stderr, c.quiet, description, func(ctx context.Context) (app.Event, error) {
		return app.Await(ctx, c.ctrl.Events(), action)
	})
}

func (c *client) login(ctx context.Context) (app.Event, error) {
	creds, err := config.Credentials(viper.GetString(config.KeyEnvFile))
	if err != nil {
		return app.Event{}, err
	}
	return c.do(ctx, "Вход в кабинет...", app.ActionLogin, func() error {
		return c.ctrl.Login(creds)
	})
}

func (c *client) close() {
	c.ctrl.Close()
	<-c.done
	c.cancel()
}

// writeOutput writes html to path, or to the command's stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path, html string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), html)
		return err
	}
	path = config.ExpandPath(path)
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Сохранено: "+path))
	return nil
}

// userError prints the user-facing message and returns err for the exit code.
func userError(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(portal.UserMessage(err)))
	return err
}
