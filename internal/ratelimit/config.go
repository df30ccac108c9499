/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppguide/site/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyAlg                 = "alg"
	cfgKeyLimit               = "limit"
	cfgKeyWindow              = "window"
	cfgKeyStore               = "store"
	cfgKeyDryRun              = "dryRun"
	cfgKeyMemoryMaxKeys       = "memory.maxKeys"
	cfgKeyMemorySweepInterval = "memory.sweepInterval"
	cfgKeyRedisAddress        = "redis.address"
	cfgKeyRedisPassword       = "redis.password"
	cfgKeyRedisDB             = "redis.db"
	cfgKeyRedisKeyPrefix      = "redis.keyPrefix"
	cfgKeyRedisDialTimeout    = "redis.dialTimeout"
	cfgKeyRedisConnAttempts   = "redis.connectAttempts"
	cfgKeyRedisConnBackoff    = "redis.connectBackoff"
)

// Default values.
const (
	DefaultLimit             = 5
	DefaultWindow            = time.Minute
	DefaultSweepInterval     = time.Minute
	DefaultRedisAddress      = "localhost:6379"
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisConnAttempts = 5
	DefaultRedisConnBackoff  = 500 * time.Millisecond
)

const redisPasswordEnvVar = "REDIS_PASSWORD"

// Config represents a set of configuration parameters for rate limiting.
type Config struct {
	Alg    Alg                 `mapstructure:"alg" yaml:"alg" json:"alg"`
	Limit  int                 `mapstructure:"limit" yaml:"limit" json:"limit"`
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`
	Store  StoreType           `mapstructure:"store" yaml:"store" json:"store"`
	DryRun bool                `mapstructure:"dryRun" yaml:"dryRun" json:"dryRun"`
	Memory MemoryConfig        `mapstructure:"memory" yaml:"memory" json:"memory"`
	Redis  RedisConfig         `mapstructure:"redis" yaml:"redis" json:"redis"`

	keyPrefix string
}

// MemoryConfig configures MemoryStore and the in-memory algorithms.
type MemoryConfig struct {
	MaxKeys       int                 `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`
	SweepInterval config.TimeDuration `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`
}

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Address         string              `mapstructure:"address" yaml:"address" json:"address"`
	Password        string              `mapstructure:"password" yaml:"password" json:"-"`
	DB              int                 `mapstructure:"db" yaml:"db" json:"db"`
	KeyPrefix       string              `mapstructure:"keyPrefix" yaml:"keyPrefix" json:"keyPrefix"`
	DialTimeout     config.TimeDuration `mapstructure:"dialTimeout" yaml:"dialTimeout" json:"dialTimeout"`
	ConnectAttempts int                 `mapstructure:"connectAttempts" yaml:"connectAttempts" json:"connectAttempts"`
	ConnectBackoff  config.TimeDuration `mapstructure:"connectBackoff" yaml:"connectBackoff" json:"connectBackoff"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a functional option for NewConfig.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix sets the key prefix used by config.Loader.
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

// KeyPrefix returns the key prefix under which rate limiting parameters are read.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// Rate returns the configured rate.
func (c *Config) Rate() Rate {
	return Rate{Count: c.Limit, Duration: time.Duration(c.Window)}
}

// SetProviderDefaults sets default configuration values for rate limiting in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAlg, string(AlgFixedWindow))
	dp.SetDefault(cfgKeyLimit, DefaultLimit)
	dp.SetDefault(cfgKeyWindow, DefaultWindow.String())
	dp.SetDefault(cfgKeyStore, string(StoreTypeMemory))
	dp.SetDefault(cfgKeyMemoryMaxKeys, DefaultMemoryStoreMaxKeys)
	dp.SetDefault(cfgKeyMemorySweepInterval, DefaultSweepInterval.String())
	dp.SetDefault(cfgKeyRedisAddress, DefaultRedisAddress)
	dp.SetDefault(cfgKeyRedisKeyPrefix, DefaultRedisKeyPrefix)
	dp.SetDefault(cfgKeyRedisDialTimeout, DefaultRedisDialTimeout.String())
	dp.SetDefault(cfgKeyRedisConnAttempts, DefaultRedisConnAttempts)
	dp.SetDefault(cfgKeyRedisConnBackoff, DefaultRedisConnBackoff.String())
	_ = dp.BindEnv(cfgKeyRedisPassword, redisPasswordEnvVar)
}

var (
	availableAlgs   = []string{string(AlgFixedWindow), string(AlgLeakyBucket), string(AlgSlidingWindow)}
	availableStores = []string{string(StoreTypeMemory), string(StoreTypeRedis)}
)

// Set sets rate limiting configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	alg, err := dp.GetStringFromSet(cfgKeyAlg, availableAlgs, true)
	if err != nil {
		return err
	}
	c.Alg = Alg(alg)

	if c.Limit, err = dp.GetInt(cfgKeyLimit); err != nil {
		return err
	}
	if c.Limit <= 0 {
		return dp.WrapKeyErr(cfgKeyLimit, errors.New("must be positive"))
	}

	window, err := dp.GetDuration(cfgKeyWindow)
	if err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, errors.New("must be positive"))
	}
	c.Window = config.TimeDuration(window)

	store, err := dp.GetStringFromSet(cfgKeyStore, availableStores, true)
	if err != nil {
		return err
	}
	c.Store = StoreType(store)
	if c.Store == StoreTypeRedis && c.Alg != AlgFixedWindow {
		return dp.WrapKeyErr(cfgKeyAlg, fmt.Errorf("only %s is supported with the %s store", AlgFixedWindow, StoreTypeRedis))
	}

	if c.DryRun, err = dp.GetBool(cfgKeyDryRun); err != nil {
		return err
	}

	if err = c.setMemoryConfig(dp); err != nil {
		return err
	}
	if c.Store == StoreTypeRedis {
		return c.setRedisConfig(dp)
	}
	return nil
}

func (c *Config) setMemoryConfig(dp config.DataProvider) error {
	maxKeys, err := dp.GetInt(cfgKeyMemoryMaxKeys)
	if err != nil {
		return err
	}
	if maxKeys <= 0 {
		return dp.WrapKeyErr(cfgKeyMemoryMaxKeys, errors.New("must be positive"))
	}
	c.Memory.MaxKeys = maxKeys

	sweepInterval, err := dp.GetDuration(cfgKeyMemorySweepInterval)
	if err != nil {
		return err
	}
	if sweepInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyMemorySweepInterval, errors.New("must be positive"))
	}
	c.Memory.SweepInterval = config.TimeDuration(sweepInterval)
	return nil
}

func (c *Config) setRedisConfig(dp config.DataProvider) error {
	var err error
	if c.Redis.Address, err = dp.GetString(cfgKeyRedisAddress); err != nil {
		return err
	}
	if c.Redis.Address == "" {
		return dp.WrapKeyErr(cfgKeyRedisAddress, errors.New("cannot be empty"))
	}
	if c.Redis.Password, err = dp.GetString(cfgKeyRedisPassword); err != nil {
		return err
	}
	if c.Redis.DB, err = dp.GetInt(cfgKeyRedisDB); err != nil {
		return err
	}
	if c.Redis.KeyPrefix, err = dp.GetString(cfgKeyRedisKeyPrefix); err != nil {
		return err
	}
	dialTimeout, err := dp.GetDuration(cfgKeyRedisDialTimeout)
	if err != nil {
		return err
	}
	c.Redis.DialTimeout = config.TimeDuration(dialTimeout)
	if c.Redis.ConnectAttempts, err = dp.GetInt(cfgKeyRedisConnAttempts); err != nil {
		return err
	}
	if c.Redis.ConnectAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRedisConnAttempts, errors.New("cannot be negative"))
	}
	connectBackoff, err := dp.GetDuration(cfgKeyRedisConnBackoff)
	if err != nil {
		return err
	}
	c.Redis.ConnectBackoff = config.TimeDuration(connectBackoff)
	return nil
}
