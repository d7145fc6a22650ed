package feature

// Feature is a named slice of platform functionality that can be routed
// independently to one of the backing systems.
type Feature string

const (
	Authentication Feature = "authentication"
	Applications   Feature = "applications"
	Documents      Feature = "documents"
	Realtime       Feature = "realtime"
	Analytics      Feature = "analytics"
)

// All lists every routable feature in a fixed order.
func All() []Feature {
	return []Feature{Authentication, Applications, Documents, Realtime, Analytics}
}

// Valid reports whether f is one of the known features.
func (f Feature) Valid() bool {
	switch f {
	case Authentication, Applications, Documents, Realtime, Analytics:
		return true
	default:
		return false
	}
}

// System identifies which backing implementation serves a request.
type System string

const (
	SystemLegacy  System = "legacy"
	SystemNative  System = "native"
	SystemCognito System = "cognito"
)

// Mode is the configured routing mode of a feature.
type Mode string

const (
	ModeLegacy  Mode = "legacy"
	ModeNative  Mode = "native"
	ModeCognito Mode = "cognito"
	ModeABTest  Mode = "ab_test"
)

// ValidFor reports whether the mode is allowed for the given feature.
// The cognito mode only exists for authentication.
func (m Mode) ValidFor(f Feature) bool {
	switch m {
	case ModeLegacy, ModeNative, ModeABTest:
		return f.Valid()
	case ModeCognito:
		return f == Authentication
	default:
		return false
	}
}

// System returns the backing system a fixed (non-A/B) mode routes to.
// ab_test has no fixed system; callers must resolve it through the
// assignment resolver.
func (m Mode) System() (System, bool) {
	switch m {
	case ModeLegacy:
		return SystemLegacy, true
	case ModeNative:
		return SystemNative, true
	case ModeCognito:
		return SystemCognito, true
	default:
		return "", false
	}
}
