// Package config loads portal client settings from a YAML file, PORTAL_*
// environment variables and bound flags, all through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/fetch"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal/chukotnet"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding"
)

const (
	EnvPrefix = "PORTAL"

	// Credentials are only ever read from the environment.
	EnvLogin    = "PORTAL_LOGIN"
	EnvPassword = "PORTAL_PASSWORD"

	DefaultConfigDir  = "$HOME/.config/portal"
	DefaultEnvFile    = ".env"
	DefaultPreviewAdr = "127.0.0.1:8765"
)

// Viper keys
const (
	KeySiteURL          = "portal.site_url"
	KeyCabinetURL       = "portal.cabinet_url"
	KeyPaymentURL       = "portal.payment_url"
	KeyTimeout          = "http.timeout"
	KeyProviderEncoding = "http.provider_encoding"
	KeyGatewayEncoding  = "http.gateway_encoding"
	KeyThemeMode        = "theme.mode"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
	KeyPreviewAddr      = "preview.addr"
	KeyEnvFile          = "env_file"
)

var ErrMissingCredentials = errors.New("PORTAL_LOGIN and PORTAL_PASSWORD must be set")

type Config struct {
	Endpoints        chukotnet.Endpoints
	Timeout          time.Duration
	ProviderEncoding encoding.Encoding
	GatewayEncoding  encoding.Encoding
	Theme            render.Mode
	LogLevel         string
	LogFormat        string
	PreviewAddr      string
}

// SetDefaults registers every key, so AutomaticEnv can resolve
// PORTAL_HTTP_TIMEOUT and friends even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySiteURL, chukotnet.DefaultSiteURL)
	v.SetDefault(KeyCabinetURL, chukotnet.DefaultCabinetURL)
	v.SetDefault(KeyPaymentURL, chukotnet.DefaultPaymentURL)
	v.SetDefault(KeyTimeout, fetch.DefaultTimeout)
	v.SetDefault(KeyProviderEncoding, "windows-1251")
	v.SetDefault(KeyGatewayEncoding, "utf-8")
	v.SetDefault(KeyThemeMode, render.ModeAuto.String())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyPreviewAddr, DefaultPreviewAdr)
	v.SetDefault(KeyEnvFile, DefaultEnvFile)
}

// Init points v at cfgFile, or at config.yaml in the standard locations
// when it is empty, and reads it. A missing optional file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		v.AddConfigPath(ExpandPath(DefaultConfigDir))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load resolves the typed settings from v.
func Load(v *viper.Viper) (*Config, error) {
	provider, err := fetch.Lookup(v.GetString(KeyProviderEncoding))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyProviderEncoding, err)
	}
	gateway, err := fetch.Lookup(v.GetString(KeyGatewayEncoding))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyGatewayEncoding, err)
	}
	mode, err := render.ParseMode(v.GetString(KeyThemeMode))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyThemeMode, err)
	}
	timeout := v.GetDuration(KeyTimeout)
	if timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyTimeout, v.GetString(KeyTimeout))
	}

	return &Config{
		Endpoints: chukotnet.Endpoints{
			Site:    v.GetString(KeySiteURL),
			Cabinet: v.GetString(KeyCabinetURL),
			Payment: v.GetString(KeyPaymentURL),
		},
		Timeout:          timeout,
		ProviderEncoding: provider,
		GatewayEncoding:  gateway,
		Theme:            mode,
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
		PreviewAddr:      v.GetString(KeyPreviewAddr),
	}, nil
}

// Credentials reads PORTAL_LOGIN and PORTAL_PASSWORD, loading envFile first
// when it exists. Variables already in the environment win over the file.
func Credentials(envFile string) (portal.Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(ExpandPath(envFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return portal.Credentials{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	creds := portal.Credentials{
		Login:    strings.TrimSpace(os.Getenv(EnvLogin)),
		Password: os.Getenv(EnvPassword),
	}
	if creds.Login == "" || creds.Password == "" {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}
