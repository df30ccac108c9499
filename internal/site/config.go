/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppguide/site/config"
)

const cfgDefaultKeyPrefix = "site"

const (
	cfgKeyName         = "name"
	cfgKeyBaseURL      = "baseURL"
	cfgKeySupportEmail = "supportEmail"
	cfgKeyTagline      = "tagline"
	cfgKeyNavLinks     = "navLinks"
)

// Site defaults.
const (
	DefaultName         = "Private Practice Guide"
	DefaultBaseURL      = "https://privatepracticeguide.com.au"
	DefaultSupportEmail = "hello@privatepracticeguide.com.au"
	DefaultTagline      = "The business side of private practice. Finally explained."
)

// NavLink is an item of the site navigation.
type NavLink struct {
	Label string `mapstructure:"label" yaml:"label" json:"label"`
	Href  string `mapstructure:"href" yaml:"href" json:"href"`
}

// DefaultNavLinks returns the default site navigation.
func DefaultNavLinks() []NavLink {
	return []NavLink{
		{Label: "Guides", Href: "/guides/cdm-billing"},
		{Label: "Physiotherapy", Href: "/physiotherapy"},
		{Label: "Podiatry", Href: "/podiatry"},
		{Label: "Exercise Physiology", Href: "/exercise-physiology"},
		{Label: "Dietetics", Href: "/dietetics"},
	}
}

// Config represents the site metadata.
type Config struct {
	Name         string    `mapstructure:"name" yaml:"name" json:"name"`
	BaseURL      string    `mapstructure:"baseURL" yaml:"baseURL" json:"baseURL"`
	SupportEmail string    `mapstructure:"supportEmail" yaml:"supportEmail" json:"supportEmail"`
	Tagline      string    `mapstructure:"tagline" yaml:"tagline" json:"tagline"`
	NavLinks     []NavLink `mapstructure:"navLinks" yaml:"navLinks" json:"navLinks"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultKeyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Name:         DefaultName,
		BaseURL:      DefaultBaseURL,
		SupportEmail: DefaultSupportEmail,
		Tagline:      DefaultTagline,
		NavLinks:     DefaultNavLinks(),
		keyPrefix:    cfgDefaultKeyPrefix,
	}
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
	dp.SetDefault(cfgKeyName, DefaultName)
	dp.SetDefault(cfgKeyBaseURL, DefaultBaseURL)
	dp.SetDefault(cfgKeySupportEmail, DefaultSupportEmail)
	dp.SetDefault(cfgKeyTagline, DefaultTagline)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Name, err = dp.GetString(cfgKeyName); err != nil {
		return err
	}

	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyBaseURL, fmt.Errorf("must be an absolute URL, got %q", c.BaseURL))
	}

	if c.SupportEmail, err = dp.GetString(cfgKeySupportEmail); err != nil {
		return err
	}
	if c.Tagline, err = dp.GetString(cfgKeyTagline); err != nil {
		return err
	}

	c.NavLinks = nil
	if err = dp.UnmarshalKey(cfgKeyNavLinks, &c.NavLinks); err != nil {
		return err
	}
	if len(c.NavLinks) == 0 {
		c.NavLinks = DefaultNavLinks()
	}
	for _, link := range c.NavLinks {
		if link.Label == "" || !strings.HasPrefix(link.Href, "/") {
			return dp.WrapKeyErr(cfgKeyNavLinks, errors.New("every link needs a label and a site-relative href"))
		}
	}
	return nil
}
