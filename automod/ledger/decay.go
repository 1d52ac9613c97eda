package ledger

import (
	"math"
	"time"
)

// TierConfig holds the community's decay and cut-point configuration. The
// ledger mechanism is fixed; all concrete numbers come from policy.
type TierConfig struct {
	// HalfLife is the age at which an entry contributes half its severity.
	HalfLife time.Duration
	// Lookback bounds how far back entries can contribute at all. Entries
	// older than this are ignored by reads (and eventually compacted).
	Lookback time.Duration
	// Cutoffs maps each tier to the summed decayed weight it requires.
	// A tier is reached only when the sum strictly exceeds its cut point:
	// ties round down, favoring the less severe tier.
	Cutoffs map[Tier]float64
}

// decayedWeight computes one entry's contribution at time now:
// severity * exp(-ln2 * age / halfLife).
func decayedWeight(severity uint8, createdAt, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	if halfLife <= 0 {
		return float64(severity)
	}
	return float64(severity) * math.Exp2(-age.Seconds()/halfLife.Seconds())
}

// tierForWeight maps a summed decayed weight to a tier. Deterministic for a
// fixed (weight, config).
func tierForWeight(sum float64, cfg TierConfig) Tier {
	out := TierNone
	for _, tier := range AllTiers {
		cut, ok := cfg.Cutoffs[tier]
		if !ok {
			continue
		}
		if sum > cut {
			out = tier
		}
	}
	return out
}

// weightSum folds entries into the current decayed weight, skipping entries
// outside the lookback horizon.
func weightSum(entries []Entry, now time.Time, cfg TierConfig) float64 {
	horizon := now.Add(-cfg.Lookback)
	var sum float64
	for _, e := range entries {
		if cfg.Lookback > 0 && e.CreatedAt.Before(horizon) {
			continue
		}
		sum += decayedWeight(e.Severity, e.CreatedAt, now, cfg.HalfLife)
	}
	return sum
}
