/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testServerConfig struct {
	Address string
	Timeout time.Duration
}

func (c *testServerConfig) KeyPrefix() string {
	return "server"
}

func (c *testServerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("address", ":8080")
	dp.SetDefault("timeout", "30s")
}

func (c *testServerConfig) Set(dp DataProvider) error {
	var err error
	if c.Address, err = dp.GetString("address"); err != nil {
		return err
	}
	c.Timeout, err = dp.GetDuration("timeout")
	return err
}

type testCredentialsConfig struct {
	APIKey string
}

func (c *testCredentialsConfig) KeyPrefix() string {
	return "kit"
}

func (c *testCredentialsConfig) SetProviderDefaults(dp DataProvider) {
	_ = dp.BindEnv("apiKey", "TEST_PPG_KIT_API_KEY")
}

func (c *testCredentialsConfig) Set(dp DataProvider) error {
	var err error
	c.APIKey, err = dp.GetString("apiKey")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("load config, use defaults", func(t *testing.T) {
		cfg := &testServerConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, ":8080", cfg.Address)
		require.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("load config from yaml", func(t *testing.T) {
		cfg := &testServerConfig{}
		yamlData := "server:\n  address: \":9090\"\n  timeout: 1m\n"
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(yamlData), DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, ":9090", cfg.Address)
		require.Equal(t, time.Minute, cfg.Timeout)
	})

	t.Run("invalid duration", func(t *testing.T) {
		cfg := &testServerConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"server":{"timeout":"soon"}}`), DataTypeJSON, cfg)
		require.ErrorContains(t, err, "server.timeout")
	})
}

func TestLoader_Load_EnvVars(t *testing.T) {
	t.Setenv("PPGTEST_SERVER_ADDRESS", ":7070")
	t.Setenv("TEST_PPG_KIT_API_KEY", "secret-key")

	serverCfg := &testServerConfig{}
	credsCfg := &testCredentialsConfig{}
	err := NewDefaultLoader("ppgtest").Load(serverCfg, credsCfg)
	require.NoError(t, err)
	require.Equal(t, ":7070", serverCfg.Address)
	require.Equal(t, "secret-key", credsCfg.APIKey)
}
