package logger

import (
	"go.uber.org/zap"
)

// New creates a zap logger configured for the given application environment.
// "production" uses the JSON production config; everything else uses the
// human-readable development config.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// NewNamed creates an environment-appropriate logger named after the service.
func NewNamed(appEnv, service string) (*zap.Logger, error) {
	log, err := New(appEnv)
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}
