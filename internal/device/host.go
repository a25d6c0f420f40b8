package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// HostSource reads device properties from the machine the engine is running
// on. It exists so the engine can be exercised end to end on development
// hosts; on a real deployment the embedding app injects its own Source backed
// by the platform's device-info API.
type HostSource struct{}

// NewHostSource returns a Source backed by the local OS, or nil when the host
// OS exposes none of the required properties (the classifier treats a nil
// source as a restricted host).
func NewHostSource() *HostSource {
	switch runtime.GOOS {
	case "darwin", "linux":
		return &HostSource{}
	default:
		return nil
	}
}

// TotalMemory returns the physical RAM size in bytes.
func (h *HostSource) TotalMemory(ctx context.Context) (int64, error) {
	switch runtime.GOOS {
	case "darwin":
		out, err := sysctl(ctx, "hw.memsize")
		if err != nil {
			return 0, err
		}
		memBytes, err := strconv.ParseInt(out, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse hw.memsize: %w", err)
		}
		return memBytes, nil

	case "linux":
		data, err := os.ReadFile("/proc/meminfo")
		if err != nil {
			return 0, fmt.Errorf("read meminfo: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "MemTotal:") {
				var kbytes int64
				if _, err := fmt.Sscanf(line, "MemTotal: %d kB", &kbytes); err != nil {
					return 0, fmt.Errorf("parse meminfo: %w", err)
				}
				return kbytes * 1024, nil
			}
		}
		return 0, fmt.Errorf("MemTotal not found in /proc/meminfo")

	default:
		return 0, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// SupportedABIs derives the instruction-set list from the build architecture.
func (h *HostSource) SupportedABIs(ctx context.Context) ([]string, error) {
	switch runtime.GOARCH {
	case "arm64":
		return []string{"arm64", "arm64e"}, nil
	case "amd64":
		return []string{"x86_64"}, nil
	case "386":
		return []string{"x86"}, nil
	case "arm":
		return []string{"armeabi-v7a"}, nil
	default:
		return []string{runtime.GOARCH}, nil
	}
}

// Model returns the hardware model identifier.
func (h *HostSource) Model(ctx context.Context) (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return sysctl(ctx, "hw.model")
	case "linux":
		data, err := os.ReadFile("/sys/devices/virtual/dmi/id/product_name")
		if err != nil {
			return "", fmt.Errorf("read product name: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// OSName returns the host operating system name.
func (h *HostSource) OSName() string {
	return runtime.GOOS
}

// OSVersion returns the major OS version number.
func (h *HostSource) OSVersion(ctx context.Context) (int, error) {
	switch runtime.GOOS {
	case "darwin":
		out, err := sysctl(ctx, "kern.osproductversion")
		if err != nil {
			return 0, err
		}
		major := out
		if i := strings.IndexByte(major, '.'); i >= 0 {
			major = major[:i]
		}
		v, err := strconv.Atoi(major)
		if err != nil {
			return 0, fmt.Errorf("parse os version %q: %w", out, err)
		}
		return v, nil

	case "linux":
		data, err := os.ReadFile("/proc/sys/kernel/osrelease")
		if err != nil {
			return 0, fmt.Errorf("read osrelease: %w", err)
		}
		release := strings.TrimSpace(string(data))
		if i := strings.IndexByte(release, '.'); i >= 0 {
			release = release[:i]
		}
		major, err := strconv.Atoi(release)
		if err != nil {
			return 0, fmt.Errorf("parse osrelease: %w", err)
		}
		return major, nil

	default:
		return 0, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// sysctl runs `sysctl -n <key>` with a short timeout.
func sysctl(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sysctl", "-n", key)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sysctl %s: %w", key, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
