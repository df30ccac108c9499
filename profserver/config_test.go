/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
		require.False(t, cfg.Enabled)
	})

	t.Run("yaml", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(`
profServer:
  enabled: true
  address: "0.0.0.0:6061"
`), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.True(t, cfg.Enabled)
		require.Equal(t, "0.0.0.0:6061", cfg.Address)
	})

	t.Run("key prefix", func(t *testing.T) {
		cfg := NewConfig(WithKeyPrefix("pprof"))
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString("pprof:\n  enabled: true\n"), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.True(t, cfg.Enabled)
		require.Equal(t, DefaultAddress, cfg.Address)
	})

	t.Run("empty address", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString("profServer:\n  address: \"\"\n"), config.DataTypeYAML, cfg)
		require.EqualError(t, err, "profServer.address: cannot be empty")
	})
}
