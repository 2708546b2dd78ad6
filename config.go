package chronicle

import "go.uber.org/zap"

type (
	Config struct {
		Journal Journal
		Broker  Broker
		Logger  *zap.Logger
	}

	HubConfig struct {
		Buffer int
		Logger *zap.Logger
	}
)

const (
	DefaultHubBuffer = 256
	DefaultCacheSize = 4096
)

func DefaultConfig() Config {
	return Config{
		Journal: NewMemoryJournal(),
		Broker:  NopBroker(),
		Logger:  zap.NewNop(),
	}
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Buffer: DefaultHubBuffer,
		Logger: zap.NewNop(),
	}
}

func (c Config) withDefaults() Config {
	if c.Journal == nil {
		c.Journal = NewMemoryJournal()
	}
	if c.Broker == nil {
		c.Broker = NopBroker()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c HubConfig) withDefaults() HubConfig {
	if c.Buffer <= 0 {
		c.Buffer = DefaultHubBuffer
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
