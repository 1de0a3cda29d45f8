package internal

import "github.com/fenwick/draftpilot/internal/genclient"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	gen    genclient.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGenerator overrides the generation backend selected from config.
// Useful for tests and offline runs.
func WithGenerator(gen genclient.Client) Option {
	return func(a *application) {
		a.gen = gen
	}
}
