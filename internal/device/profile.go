// Package device derives a capability tier used to tune cache
// aggressiveness. Detection runs once at startup; the rest of the code
// receives the resulting Profile as a plain value.
package device

// Tier classifies a device for staleness/retry policy decisions.
type Tier string

const (
	TierLow      Tier = "low"
	TierBalanced Tier = "balanced"
	TierHigh     Tier = "high"
)

// MobileBreakpoint is the viewport width below which the compact agenda
// view is forced.
const MobileBreakpoint = 768

// Capabilities is the raw hardware/network introspection input.
type Capabilities struct {
	MemoryGB       int
	Cores          int
	ConnectionType string // "slow-2g", "2g", "3g", "4g", "wifi", ""
	ViewportWidth  int
	SaveData       bool
}

// Profile is the derived capability profile injected into the cache
// engine and the view-model.
type Profile struct {
	Tier           Tier
	Mobile         bool
	SlowConnection bool
	ViewportWidth  int
}

// Desktop is a convenience profile for tests and non-constrained hosts.
var Desktop = Profile{Tier: TierHigh, ViewportWidth: 1920}

// Detect derives a Profile from raw capabilities. Zero-valued fields fall
// back to mid-range assumptions, mirroring browsers that do not expose
// the corresponding APIs.
func Detect(caps Capabilities) Profile {
	memory := caps.MemoryGB
	if memory == 0 {
		memory = 4
	}
	cores := caps.Cores
	if cores == 0 {
		cores = 4
	}

	slow := isSlowConnection(caps.ConnectionType) || caps.SaveData
	mobile := caps.ViewportWidth > 0 && caps.ViewportWidth < MobileBreakpoint

	tier := TierHigh
	switch {
	case memory <= 2 || cores <= 2 || isVerySlowConnection(caps.ConnectionType):
		tier = TierLow
	case memory <= 4 || cores <= 4 || caps.ConnectionType == "3g":
		tier = TierBalanced
	case mobile && (memory <= 6 || cores <= 6):
		// mobile high-end stays conservative
		tier = TierBalanced
	}

	return Profile{
		Tier:           tier,
		Mobile:         mobile,
		SlowConnection: slow,
		ViewportWidth:  caps.ViewportWidth,
	}
}

func isSlowConnection(connectionType string) bool {
	switch connectionType {
	case "slow-2g", "2g", "3g":
		return true
	}
	return false
}

func isVerySlowConnection(connectionType string) bool {
	return connectionType == "slow-2g" || connectionType == "2g"
}
