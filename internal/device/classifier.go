package device

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Classifier maps host device properties onto a capability tier.
type Classifier struct {
	source Source
}

// NewClassifier creates a classifier over the given device-info source.
// A nil source is allowed and always classifies as unsupported (restricted
// hosts have no device-info capability at all).
func NewClassifier(source Source) *Classifier {
	return &Classifier{source: source}
}

// Classify inspects the host and returns its capability tier. It never
// returns an error: every unreachable-data path degrades to the unsupported
// classification.
func (c *Classifier) Classify(ctx context.Context) Classification {
	if c.source == nil {
		log.Debug().Msg("no device-info source, classifying as unsupported")
		return Unsupported()
	}

	ramBytes, err := c.source.TotalMemory(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read total memory")
		return Unsupported()
	}
	abis, err := c.source.SupportedABIs(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read supported ABIs")
		return Unsupported()
	}
	model, err := c.source.Model(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read device model")
		return Unsupported()
	}

	const gb = 1024 * 1024 * 1024
	ramGB := float64(ramBytes) / gb

	arch := "unknown"
	if len(abis) > 0 {
		arch = abis[0]
	}

	eligible := FoundationEligibleModel(model)

	result := Classification{
		RAMGB:              ramGB,
		Arch:               arch,
		Model:              model,
		FoundationEligible: eligible,
	}

	// The inference runtime requires 64-bit ARM. Architecture is load-bearing:
	// even a model-name match cannot make the foundation backend work on a
	// non-ARM64 host.
	if !isARM64(abis) {
		result.Tier = TierUnsupported
		result.FoundationEligible = false
		log.Debug().Str("arch", arch).Msg("no ARM64 ABI, classifying as unsupported")
		return result
	}

	if eligible && c.hostSupportsFoundationModel(ctx) {
		result.Tier = TierAppleFoundation
		log.Info().
			Str("model", model).
			Float64("ram_gb", ramGB).
			Msg("device eligible for platform foundation model")
		return result
	}

	switch {
	case ramGB >= StandardRAMThresholdGB:
		result.Tier = TierStandard
	case ramGB >= CompactRAMThresholdGB:
		result.Tier = TierCompact
	case ramGB >= MinimalRAMThresholdGB:
		result.Tier = TierMinimal
	default:
		result.Tier = TierUnsupported
	}

	log.Info().
		Str("tier", result.Tier.String()).
		Float64("ram_gb", ramGB).
		Str("arch", arch).
		Str("model", model).
		Bool("foundation_eligible", result.FoundationEligible).
		Msg("device classified")

	return result
}

// hostSupportsFoundationModel reports whether the host OS ships the platform
// foundation model. Version read failures degrade to false, never error.
func (c *Classifier) hostSupportsFoundationModel(ctx context.Context) bool {
	if !foundationOSNames[c.source.OSName()] {
		return false
	}
	major, err := c.source.OSVersion(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read OS version")
		return false
	}
	return major >= foundationOSMinMajor
}
