package ledger

import (
	"fmt"
)

// Tier is the current escalation level for a (community, user) pair, derived
// on demand from decayed ledger weight. Never stored.
type Tier int

const (
	TierNone Tier = iota
	TierNotice
	TierTimeoutShort
	TierTimeoutLong
	TierKick
	TierBan
)

var tierNames = map[Tier]string{
	TierNone:         "none",
	TierNotice:       "notice",
	TierTimeoutShort: "timeout-short",
	TierTimeoutLong:  "timeout-long",
	TierKick:         "kick",
	TierBan:          "ban",
}

func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// AllTiers, in ascending severity, excluding TierNone.
var AllTiers = []Tier{TierNotice, TierTimeoutShort, TierTimeoutLong, TierKick, TierBan}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	for tier, name := range tierNames {
		if name == string(b) {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown escalation tier: %q", string(b))
}
