// Package device classifies the running host into a capability tier that
// drives LLM backend selection. Classification is recomputed on demand and
// never fails: any unreadable host property degrades to the unsupported tier.
package device

import (
	"context"
	"strconv"
	"strings"
)

// Tier is a named device-capability bucket.
type Tier string

const (
	// TierAppleFoundation means the platform foundation model can run on-device.
	TierAppleFoundation Tier = "apple_foundation"

	// TierStandard covers devices with at least 6 GB of RAM.
	TierStandard Tier = "standard"

	// TierCompact covers devices with at least 4 GB of RAM.
	TierCompact Tier = "compact"

	// TierMinimal covers devices with at least 3 GB of RAM.
	TierMinimal Tier = "minimal"

	// TierUnsupported means no on-device inference is possible.
	TierUnsupported Tier = "unsupported"
)

// String returns the tier name for display.
func (t Tier) String() string {
	return string(t)
}

// RAM thresholds in gigabytes for the downloadable-model tiers.
const (
	StandardRAMThresholdGB = 6.0
	CompactRAMThresholdGB  = 4.0
	MinimalRAMThresholdGB  = 3.0
)

// Foundation-model eligibility thresholds. Phone identifiers look like
// "iPhone17,3" and tablet identifiers like "iPad14,5"; the leading number
// encodes the hardware generation, which is a proxy for "has a neural
// accelerator capable of running the platform foundation model".
const (
	phoneMinGeneration = 17
	tabletMinRevision  = 14
)

// foundationOSMinMajor is the minimum major OS version that ships the
// platform foundation model.
const foundationOSMinMajor = 26

// Classification is the result of inspecting the host device. It is a value
// object: recomputed per resolution, never persisted.
type Classification struct {
	Tier               Tier    `json:"tier"`
	RAMGB              float64 `json:"ram_gb"`
	Arch               string  `json:"arch"`
	Model              string  `json:"model"`
	FoundationEligible bool    `json:"foundation_eligible"`
}

// Unsupported returns the safe-default classification used whenever host
// properties cannot be read.
func Unsupported() Classification {
	return Classification{
		Tier:  TierUnsupported,
		RAMGB: 0,
		Arch:  "unknown",
		Model: "unknown",
	}
}

// Source provides read-only access to host device properties. Implementations
// must not cache stale data across OS upgrades; the classifier reads fresh
// values on every call.
type Source interface {
	// TotalMemory returns the physical RAM size in bytes.
	TotalMemory(ctx context.Context) (int64, error)

	// SupportedABIs returns the CPU instruction-set identifiers the host
	// supports, most-preferred first (e.g. ["arm64-v8a", "armeabi-v7a"]).
	SupportedABIs(ctx context.Context) ([]string, error)

	// Model returns the device model identifier (e.g. "iPhone17,3").
	Model(ctx context.Context) (string, error)

	// OSName returns the host operating system name (e.g. "darwin", "ios").
	OSName() string

	// OSVersion returns the major OS version number.
	OSVersion(ctx context.Context) (int, error)
}

// arm64ABIs is the set of instruction-set identifiers accepted as 64-bit ARM.
var arm64ABIs = map[string]bool{
	"arm64":     true,
	"arm64e":    true,
	"arm64-v8a": true,
	"aarch64":   true,
}

// isARM64 reports whether any listed ABI is a 64-bit ARM variant.
func isARM64(abis []string) bool {
	for _, abi := range abis {
		if arm64ABIs[strings.ToLower(abi)] {
			return true
		}
	}
	return false
}

// foundationOSNames is the set of OS names that ship the platform foundation
// model at foundationOSMinMajor or later.
var foundationOSNames = map[string]bool{
	"darwin": true,
	"ios":    true,
	"ipados": true,
}

// FoundationEligibleModel reports whether a device model identifier names
// hardware capable of running the platform foundation model. This is a pure
// string-pattern match, independent of RAM.
func FoundationEligibleModel(model string) bool {
	if gen, ok := identifierMajor(model, "iPhone"); ok {
		return gen >= phoneMinGeneration
	}
	if rev, ok := identifierMajor(model, "iPad"); ok {
		return rev >= tabletMinRevision
	}
	return false
}

// identifierMajor extracts the leading number from identifiers of the form
// "<prefix><major>,<minor>". Returns false when model does not match.
func identifierMajor(model, prefix string) (int, bool) {
	if !strings.HasPrefix(model, prefix) {
		return 0, false
	}
	rest := model[len(prefix):]
	if i := strings.IndexByte(rest, ','); i >= 0 {
		rest = rest[:i]
	}
	major, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return major, true
}
