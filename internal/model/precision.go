package model

import "strings"

// Precision names a numeric compute mode, e.g. a ggml quantization.
type Precision string

// cloud backends expose a single implicit mode
const PrecisionDefault Precision = "default"

// Profile is the ordered list of modes tried during acquisition.
type Profile []Precision

// ParseProfile trims, lowercases and drops empty names.
func ParseProfile(modes []string) Profile {
	p := make(Profile, 0, len(modes))
	for _, m := range modes {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			p = append(p, Precision(m))
		}
	}
	return p
}

func (p Profile) Strings() []string {
	out := make([]string, len(p))
	for i, m := range p {
		out[i] = string(m)
	}
	return out
}
