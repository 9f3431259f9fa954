package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTier is a configuration error and never triggers fallback.
var ErrInvalidTier = errors.New("invalid model tier")

// model size tier
type Tier string

const (
	TierTiny   Tier = "tiny"
	TierBase   Tier = "base"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// smallest first
var Tiers = []Tier{TierTiny, TierBase, TierSmall, TierMedium, TierLarge}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tiers {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w %q: use tiny, base, small, medium or large", ErrInvalidTier, s)
}
