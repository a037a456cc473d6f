package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/aerojs/aerojs-core/pkg/config"
)

func TestDefaults(t *testing.T) {
	d := config.Defaults()
	assert.Equal(t, config.OptO2, d.OptLevel)
	assert.Equal(t, 10, d.HotThreshold)
	assert.Equal(t, 2000, d.MaxTraceLen)
}

func TestBindFlagsAndLoadOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()
	config.BindFlags(fs, v)

	require := assert.New(t)
	require.NoError(fs.Parse([]string{"--hot-threshold=42", "--arch=arm64"}))

	cfg := config.Load(v)
	require.Equal(42, cfg.HotThreshold)
	require.Equal(config.ArchARM64, cfg.Arch)
	// Untouched flags keep their defaults.
	require.Equal(config.OptO2, cfg.OptLevel)
}

func TestLoadNilViperReturnsDefaults(t *testing.T) {
	assert.Equal(t, config.Defaults(), config.Load(nil))
}
