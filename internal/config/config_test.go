package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFailsWithoutAccessToken(t *testing.T) {
	t.Setenv("SDS_GATEWAY_ACCESS_TOKEN", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SDS_GATEWAY_ACCESS_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "tok", cfg.GatewayAccessToken)
	assert.Equal(t, "https://sds-gateway-uswest.thestratos.org", cfg.GatewayBaseURL)
	assert.Equal(t, "/spfs", cfg.GatewayPathPrefix)
	assert.Equal(t, int64(100<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "temp-uploads", cfg.ScratchDir)
	assert.Equal(t, cfg.PublicGatewayBase, cfg.FallbackGatewayBase,
		"fallback gateway currently mirrors the public one")
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SDS_GATEWAY_ACCESS_TOKEN", "tok")
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
}

func TestLoadInvalidMaxUploadBytesFallsBack(t *testing.T) {
	t.Setenv("SDS_GATEWAY_ACCESS_TOKEN", "tok")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(100<<20), cfg.MaxUploadBytes)
}
