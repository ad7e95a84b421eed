package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katsys/natcalc"
)

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]byte(`
log_level = "debug"
workers = 8

[[pool]]
name = "office"
min = "100.64.0.0"
max = "100.64.0.255"
seed = 7
key_order = "big"
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Workers)
	require.Len(t, cfg.Pools, 1)

	pc, err := cfg.Pool("office")
	require.NoError(t, err)
	p, err := pc.build()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), p.Seed())
	assert.Equal(t, natcalc.KeyBigEndian, p.KeyOrder())
	assert.Equal(t, "100.64.0.0-100.64.0.255", p.Range().String())

	// Explicit options win over the file.
	p, err = pc.build(natcalc.WithSeed(0))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p.Seed())

	_, err = cfg.Pool("lab")
	assert.Error(t, err)
}

func TestParseConfigErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":    `workers = `,
		"no name":   "[[pool]]\nmin = \"10.0.0.0\"\nmax = \"10.0.0.1\"\n",
		"duplicate": "[[pool]]\nname = \"a\"\n[[pool]]\nname = \"a\"\n",
		"workers":   "workers = -1\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestPoolConfigBuildErrors(t *testing.T) {
	tests := []PoolConfig{
		{Name: "bad min", Min: "10.0.0.256", Max: "10.0.0.3"},
		{Name: "bad max", Min: "10.0.0.0", Max: "ten"},
		{Name: "inverted", Min: "10.0.0.3", Max: "10.0.0.0"},
		{Name: "order", Min: "10.0.0.0", Max: "10.0.0.3", KeyOrder: "pdp"},
	}
	for _, pc := range tests {
		_, err := pc.build()
		assert.Error(t, err, pc.Name)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug", zerolog.WarnLevel))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("1", zerolog.WarnLevel))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(" ERROR ", zerolog.WarnLevel))
	assert.Equal(t, zerolog.Disabled, parseLevel("off", zerolog.WarnLevel))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("chatty", zerolog.WarnLevel))
}
