package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kuonanhong/gpitch/config"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "loogp dev\n", out.String())
}

func TestSeparateWindows(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Points = 60
	cfg.Data.Pitches = cfg.Data.Pitches[:1]
	cfg.Model.Variant = "single"
	cfg.Model.InducingEvery = 10
	cfg.Window.Size = 30
	cfg.Fit.MaxIter = 2
	require.NoError(t, cfg.Validate())

	data, err := synth.Generate(cfg.SynthSpec())
	require.NoError(t, err)
	var out bytes.Buffer
	corr, err := separate(cfg, data, zap.NewNop(), &out)
	require.NoError(t, err)
	require.Len(t, corr, 1)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "window 0 [0, 30) bound "))
	assert.True(t, strings.HasPrefix(lines[1], "window 1 [30, 60) bound "))
	assert.Contains(t, lines[1], "corr1")
}

func TestMissingConfigFails(t *testing.T) {
	rootCmd.SetArgs([]string{"run", "--config", t.TempDir() + "/nope.yaml"})
	assert.Error(t, rootCmd.Execute())
	configPath = ""
}

func TestBuildKernelsFromSpectrum(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Points = 800
	cfg.Kernels.Component.EstimatePartials = true
	cfg.Kernels.Component.MaxPartials = 2
	require.NoError(t, cfg.Validate())
	data, err := synth.Generate(cfg.SynthSpec())
	require.NoError(t, err)

	kf, kg, err := buildKernels(cfg, data, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, kf, 2)
	require.Len(t, kg, 2)
	sm := kf[0].(*kern.SpectralMixture)
	assert.Equal(t, 2, sm.Len())
	// 800 samples at 16 kHz resolve 20 Hz bins.
	assert.InDelta(t, 440, sm.Frequency[0].Value(), 20)
	assert.InDelta(t, 880, sm.Frequency[1].Value(), 20)
}
