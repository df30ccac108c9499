/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads application settings from YAML files and environment variables
// into typed configuration structures.
package config

// Config is implemented by every configuration section that Loader can fill.
// SetProviderDefaults is called for all sections first, then Set.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by sections whose keys live under a common prefix (e.g. "server").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// dataProviderFor returns dp scoped to the section's key prefix, if it has one.
func dataProviderFor(dp DataProvider, cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
