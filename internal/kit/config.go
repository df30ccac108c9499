/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package kit

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/ppguide/site/config"
)

const cfgDefaultKeyPrefix = "kit"

const (
	cfgKeyBaseURL = "baseURL"
	cfgKeyAPIKey  = "apiKey"
	cfgKeyFormID  = "formID"
)

// Environment variables with the credentials. They are read without the application prefix.
const (
	EnvAPIKey = "KIT_API_KEY"
	EnvFormID = "KIT_FORM_ID"
)

// DefaultBaseURL is the Kit API v4 endpoint.
const DefaultBaseURL = "https://api.kit.com/v4"

// Config represents a set of configuration parameters for the Kit client.
// Missing credentials are not a configuration error: the client reports ErrNotConfigured on use.
type Config struct {
	BaseURL string `mapstructure:"baseURL" yaml:"baseURL" json:"baseURL"`
	APIKey  string `mapstructure:"apiKey" yaml:"apiKey" json:"-"`
	FormID  string `mapstructure:"formID" yaml:"formID" json:"formID"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBaseURL, DefaultBaseURL)
}

// Set sets configuration values from config.DataProvider.
// The API key and the form id are also read from KIT_API_KEY and KIT_FORM_ID.
func (c *Config) Set(dp config.DataProvider) error {
	if err := dp.BindEnv(cfgKeyAPIKey, EnvAPIKey); err != nil {
		return err
	}
	if err := dp.BindEnv(cfgKeyFormID, EnvFormID); err != nil {
		return err
	}

	var err error
	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyBaseURL, fmt.Errorf("must be an absolute http(s) URL, got %q", c.BaseURL))
	}

	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}
	if c.FormID, err = dp.GetString(cfgKeyFormID); err != nil {
		return err
	}
	return nil
}

// Validate reports whether the credentials are set.
func (c *Config) Validate() error {
	if c.APIKey == "" || c.FormID == "" {
		return errors.New("both " + EnvAPIKey + " and " + EnvFormID + " must be set")
	}
	return nil
}
