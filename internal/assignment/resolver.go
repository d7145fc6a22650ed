package assignment

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

// Policy configures A/B splitting for features in ab_test mode.
type Policy struct {
	Enabled         bool
	SplitPercentage int
	SplitByUser     bool
	AdminOverride   feature.System
}

// ModeSource exposes the current routing mode of a feature.
type ModeSource interface {
	Mode(f feature.Feature) feature.Mode
}

// Resolver decides which system serves a (feature, user) pair. Fixed
// modes pass through untouched; ab_test mode applies the split policy.
// Per-user decisions are cached for the lifetime of the resolver so a
// user's experience stays stable across calls.
type Resolver struct {
	mutex  sync.Mutex
	modes  ModeSource
	policy Policy
	cache  map[string]feature.System
	intn   func(n int) int
	hash   func(id string) int
}

// NewResolver builds a resolver with the default randomness and hash
// sources.
func NewResolver(modes ModeSource, policy Policy) *Resolver {
	return NewResolverWith(modes, policy, rand.IntN, UserHash)
}

// NewResolverWith injects the random and hash sources. Tests use a
// seeded intn and a counting hash.
func NewResolverWith(modes ModeSource, policy Policy, intn func(n int) int, hash func(id string) int) *Resolver {
	return &Resolver{
		modes:  modes,
		policy: policy,
		cache:  make(map[string]feature.System),
		intn:   intn,
		hash:   hash,
	}
}

// Resolve returns the system that should serve the given feature for
// the given user. An empty userID means an anonymous caller; anonymous
// A/B assignments are drawn fresh on every call and are not cached.
func (r *Resolver) Resolve(f feature.Feature, userID string) feature.System {
	if sys, ok := r.modes.Mode(f).System(); ok {
		return sys
	}

	// ab_test from here on.

	// Weak by construction: the source system recognized admins by
	// substring match on the identifier. Kept as-is; see DESIGN.md.
	if userID != "" && strings.Contains(userID, "admin") && r.policy.AdminOverride != "" {
		return r.policy.AdminOverride
	}

	if !r.policy.Enabled {
		return feature.SystemLegacy
	}

	if r.policy.SplitByUser && userID != "" {
		return r.assignUser(userID)
	}

	if r.intn(100) < r.policy.SplitPercentage {
		return feature.SystemNative
	}
	return feature.SystemLegacy
}

// Policy returns the split policy the resolver was built with.
func (r *Resolver) Policy() Policy {
	return r.policy
}

func (r *Resolver) assignUser(userID string) feature.System {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if sys, ok := r.cache[userID]; ok {
		return sys
	}

	sys := feature.SystemLegacy
	if r.hash(userID)%100 < r.policy.SplitPercentage {
		sys = feature.SystemNative
	}

	r.cache[userID] = sys
	return sys
}

// UserHash maps a user identifier to a non-negative bucket value using
// an additive polynomial hash wrapped to 32 bits.
func UserHash(id string) int {
	var h int32
	for _, r := range id {
		h = h*31 + int32(r)
	}

	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
