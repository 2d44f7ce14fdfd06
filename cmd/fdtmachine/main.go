package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	_ "github.com/tinyrange/fdtmachine/internal/devices"
	"github.com/tinyrange/fdtmachine/internal/hv"
	"github.com/tinyrange/fdtmachine/internal/mch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fdtmachine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Machine config file (YAML)")
	dtbPath := flag.String("dtb", "", "Device tree blob to build from")
	arch := flag.String("arch", "", "Target architecture (arm64, mips, x86_64)")
	cpuType := flag.String("cpu", "", "Fallback CPU type when the tree has no cpus node")
	cpuFreq := flag.Uint64("cpu-freq", 0, "Default CPU timebase frequency in Hz")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Build a machine topology from a device tree blob and print a summary.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s -dtb vexpress-v2p-ca15.dtb\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config machine.yaml -debug\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cfg mch.Config
	if *configPath != "" {
		loaded, err := mch.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *dtbPath != "" {
		cfg.DTBPath = *dtbPath
	}
	if *arch != "" {
		parsed, err := parseArchitecture(*arch)
		if err != nil {
			return err
		}
		cfg.Arch = parsed
	}
	if *cpuType != "" {
		cfg.CPUType = *cpuType
	}
	if *cpuFreq != 0 {
		cfg.DefaultCPUHz = *cpuFreq
	}

	machine, err := mch.Build(cfg)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(machine.Summarize())
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return err
	}
	return nil
}

func parseArchitecture(name string) (hv.CpuArchitecture, error) {
	switch name {
	case "arm64", "arm":
		return hv.ArchitectureARM64, nil
	case "mips":
		return hv.ArchitectureMIPS, nil
	case "x86_64", "amd64":
		return hv.ArchitectureX86_64, nil
	default:
		return hv.ArchitectureInvalid, fmt.Errorf("unsupported architecture: %s", name)
	}
}
