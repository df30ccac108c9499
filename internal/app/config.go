/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/ppguide/site/config"
	"github.com/ppguide/site/httpclient"
	"github.com/ppguide/site/httpserver"
	"github.com/ppguide/site/internal/kit"
	"github.com/ppguide/site/internal/ratelimit"
	"github.com/ppguide/site/internal/site"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/profserver"
)

// EnvVarsPrefix is the prefix of environment variables overriding configuration keys,
// e.g. PPG_SERVER_ADDRESS for server.address.
const EnvVarsPrefix = "PPG"

// Config is the application configuration.
type Config struct {
	Server     *httpserver.Config
	Log        *log.Config
	RateLimit  *ratelimit.Config
	Kit        *kit.Config
	KitHTTP    *httpclient.Config
	Site       *site.Config
	ProfServer *profserver.Config
}

// NewConfig creates a new instance of the Config.
// The Kit HTTP client settings (timeout, outbound rate limits, logging) share the "kit" key prefix.
func NewConfig() *Config {
	return &Config{
		Server:     httpserver.NewConfig(),
		Log:        log.NewConfig(),
		RateLimit:  ratelimit.NewConfig(),
		Kit:        kit.NewConfig(),
		KitHTTP:    httpclient.NewConfig(httpclient.WithKeyPrefix("kit")),
		Site:       site.NewConfig(),
		ProfServer: profserver.NewConfig(),
	}
}

func (c *Config) sections() (config.Config, []config.Config) {
	return c.Server, []config.Config{c.Log, c.RateLimit, c.Kit, c.KitHTTP, c.Site, c.ProfServer}
}

// LoadConfig loads the configuration from the YAML file (if path is not empty) and environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	loader := config.NewDefaultLoader(EnvVarsPrefix)
	first, rest := cfg.sections()
	if path == "" {
		if err := loader.Load(first, rest...); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := loader.LoadFromFile(path, config.DataTypeYAML, first, rest...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromReader loads the configuration from YAML data and environment variables.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	first, rest := cfg.sections()
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromReader(r, config.DataTypeYAML, first, rest...); err != nil {
		return nil, err
	}
	return cfg, nil
}
