package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_ValidatesConfig(t *testing.T) {
	useTestConfig(t)
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 0
	cfg.Server.MaxUploadMB = 25

	serveCmd.SetContext(context.Background())
	defer serveCmd.SetContext(nil)

	err := serveCmd.RunE(serveCmd, nil)
	assert.ErrorContains(t, err, "server.rate_limit_rps must be > 0")
}

func TestServeCmd_PortFlagOverridesConfig(t *testing.T) {
	useTestConfig(t)
	cfg.Server.Port = 8080
	servePort = -1
	defer func() { servePort = 0 }()

	serveCmd.SetContext(context.Background())
	defer serveCmd.SetContext(nil)

	// A negative flag value is ignored, so the config port is validated as is
	// and the missing rate limit is what fails.
	err := serveCmd.RunE(serveCmd, nil)
	assert.ErrorContains(t, err, "server.rate_limit_rps")
	assert.Equal(t, 8080, cfg.Server.Port)
}
