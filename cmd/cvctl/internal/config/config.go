package config

import (
	"context"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/client"
)

type contextKey string

const configKey contextKey = "cvctl-config"

// GlobalConfig holds shared configuration for all cvctl commands.
// The root command's PersistentPreRunE injects it into the command context.
type GlobalConfig struct {
	ServerURL      string
	ConfigDir      string
	Route          string
	NonInteractive bool
	ClientProvider *client.Provider
}

// InjectConfig adds cfg to ctx.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from ctx. Returns (nil, false) if absent.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from ctx or panics. Only command RunE
// functions, which always run after the root hook, should call it.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("cvctl: config not found in context - this is a bug in cvctl")
	}
	return cfg
}
