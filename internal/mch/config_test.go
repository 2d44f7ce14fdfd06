package mch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/fdtmachine/internal/hv"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.yaml")
	data := "dtb: board.dtb\narch: arm64\ncpu: cortex-a15\ncpu-frequency: 24000000\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "board.dtb", cfg.DTBPath)
	assert.Equal(t, hv.ArchitectureARM64, cfg.Arch)
	assert.Equal(t, "cortex-a15", cfg.CPUType)
	assert.Equal(t, uint64(24000000), cfg.DefaultCPUHz)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dtb: [unclosed"), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
