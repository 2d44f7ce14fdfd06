package mch

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/fdtmachine/internal/hv"
)

// Config describes a machine build. Either DTB or DTBPath must be set.
type Config struct {
	// DTB is the raw device tree blob. Takes precedence over DTBPath.
	DTB []byte `yaml:"-"`

	// DTBPath points at a device tree blob on disk.
	DTBPath string `yaml:"dtb"`

	// Arch selects the CPU architecture, which determines the set of
	// physical interrupt lines each CPU exposes. Defaults to arm64.
	Arch hv.CpuArchitecture `yaml:"arch"`

	// CPUType is the fallback CPU created when the tree has no /cpus node.
	CPUType string `yaml:"cpu"`

	// DefaultCPUHz is the timebase used for CPUs whose node does not
	// declare a timebase-frequency.
	DefaultCPUHz uint64 `yaml:"cpu-frequency"`

	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a machine config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("mch: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("mch: parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
