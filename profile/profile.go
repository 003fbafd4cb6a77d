// Package profile defines the three fixed privacy profiles that gate
// every other component's parameters: Quick Lock, Ritual Lock, and
// Black Vault. Profiles are immutable, registered once at init, and
// never operator-configurable — tuning them is a code change, not a
// config change.
package profile

import (
	"fmt"
	"strings"
)

// ThreatModel describes who a profile is meant to resist.
type ThreatModel struct {
	ID          string // casual, focused, targeted
	Adversary   string
	Assumption  string
	Tradeoff    string
	Recommended string
}

// PrivacyProfile is one of the three immutable profile instances.
type PrivacyProfile struct {
	Name string

	KDFTime        uint32
	KDFMemoryKiB   uint32
	KDFParallelism uint8

	AudioWeight float64

	Deniable            bool
	RequiresMic         bool
	RequiresTiming      bool
	AllowsVisualRitual  bool
	HardwareRecommended bool

	SessionTTLDefaultS int
	SessionTTLMaxS     int

	// SecureDelete controls whether a session's working directory is
	// overwritten with random data before unlinking, or simply removed.
	SecureDelete bool

	AllowPlaintextDisk   bool
	UnrecoverableDefault bool

	Threat ThreatModel
}

var (
	quickLock = PrivacyProfile{
		Name:               "Quick Lock",
		KDFTime:            2,
		KDFMemoryKiB:       65536,
		KDFParallelism:     2,
		AudioWeight:        0.0,
		Deniable:           false,
		RequiresMic:        false,
		RequiresTiming:     false,
		AllowsVisualRitual: true,
		SessionTTLDefaultS: 3600,
		SessionTTLMaxS:     7200,
		SecureDelete:       false,
		AllowPlaintextDisk: true,
		Threat: ThreatModel{
			ID:          "casual",
			Adversary:   "an opportunistic snooper with brief physical access",
			Assumption:  "the device itself is not compromised",
			Tradeoff:    "fast unlock, no audio ritual required",
			Recommended: "day-to-day notes and low-stakes material",
		},
	}

	ritualLock = PrivacyProfile{
		Name:                "Ritual Lock",
		KDFTime:             4,
		KDFMemoryKiB:        131072,
		KDFParallelism:      4,
		AudioWeight:         0.7,
		Deniable:            false,
		RequiresMic:         false,
		RequiresTiming:      true,
		AllowsVisualRitual:  true,
		HardwareRecommended: true,
		SessionTTLDefaultS:  1200,
		SessionTTLMaxS:      3600,
		SecureDelete:        true,
		AllowPlaintextDisk:  true,
		Threat: ThreatModel{
			ID:          "focused",
			Adversary:   "someone who specifically wants this vault open",
			Assumption:  "the attacker cannot reproduce the bound audio ritual",
			Tradeoff:    "a timed audio ritual is required to unlock",
			Recommended: "personal archives and sensitive correspondence",
		},
	}

	blackVault = PrivacyProfile{
		Name:                 "Black Vault",
		KDFTime:              8,
		KDFMemoryKiB:         262144,
		KDFParallelism:       8,
		AudioWeight:          1.0,
		Deniable:             true,
		RequiresMic:          true,
		RequiresTiming:       true,
		AllowsVisualRitual:   false,
		HardwareRecommended:  true,
		SessionTTLDefaultS:   300,
		SessionTTLMaxS:       300,
		SecureDelete:         true,
		AllowPlaintextDisk:   false,
		UnrecoverableDefault: true,
		Threat: ThreatModel{
			ID:          "targeted",
			Adversary:   "an adversary who can compel disclosure",
			Assumption:  "plausible deniability must survive inspection",
			Tradeoff:    "no recovery by default, no visual ritual, live microphone only",
			Recommended: "material that must be deniable under coercion",
		},
	}

	byName = map[string]*PrivacyProfile{
		"quick lock":  &quickLock,
		"ritual lock": &ritualLock,
		"black vault": &blackVault,
	}

	aliases = map[string]string{
		"quicklock":  "quick lock",
		"quick lock": "quick lock",
		"quick":      "quick lock",
		"q":          "quick lock",

		"rituallock":  "ritual lock",
		"ritual lock": "ritual lock",
		"ritual":      "ritual lock",
		"r":           "ritual lock",

		"blackvault":  "black vault",
		"black vault": "black vault",
		"black":       "black vault",
		"b":           "black vault",
	}
)

func init() {
	for _, p := range byName {
		if p.Deniable {
			if !p.RequiresMic || !p.RequiresTiming || p.AudioWeight != 1.0 || p.AllowPlaintextDisk {
				panic(fmt.Sprintf("profile %q violates the deniable-profile invariant", p.Name))
			}
		}
	}
}

// Get resolves name (case-insensitive, alias-aware) to its profile.
func Get(name string) (*PrivacyProfile, bool) {
	key, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	p, ok := byName[key]
	return p, ok
}

// List returns all registered profiles in a fixed, stable order.
func List() []*PrivacyProfile {
	return []*PrivacyProfile{&quickLock, &ritualLock, &blackVault}
}

// Describe returns the full parameter and threat-model record for name.
func Describe(name string) (*PrivacyProfile, bool) {
	return Get(name)
}

// ValidateRitualMode reports whether mode ("mic", "file", "visual") is
// permitted under p. Microphone capture is always allowed; file-based
// ritual replay is blocked for profiles that require a live mic;
// visual ritual display is gated by AllowsVisualRitual.
func ValidateRitualMode(p *PrivacyProfile, mode string) bool {
	switch strings.ToLower(mode) {
	case "mic":
		return true
	case "file":
		return !p.RequiresMic
	case "visual":
		return p.AllowsVisualRitual
	default:
		return false
	}
}

// Info renders a human-readable summary table of every registered
// profile, mirroring the original package's profile_info() output.
func Info() string {
	var b strings.Builder
	for _, p := range List() {
		fmt.Fprintf(&b, "%s (%s threat model)\n", p.Name, p.Threat.ID)
		fmt.Fprintf(&b, "  kdf: time=%d memory=%dKiB parallelism=%d\n", p.KDFTime, p.KDFMemoryKiB, p.KDFParallelism)
		fmt.Fprintf(&b, "  audio_weight=%.1f deniable=%t requires_mic=%t requires_timing=%t\n",
			p.AudioWeight, p.Deniable, p.RequiresMic, p.RequiresTiming)
		fmt.Fprintf(&b, "  session_ttl: default=%ds max=%ds secure_delete=%t\n", p.SessionTTLDefaultS, p.SessionTTLMaxS, p.SecureDelete)
		fmt.Fprintf(&b, "  allow_plaintext_disk=%t unrecoverable_default=%t\n", p.AllowPlaintextDisk, p.UnrecoverableDefault)
		fmt.Fprintf(&b, "  adversary: %s\n", p.Threat.Adversary)
		fmt.Fprintf(&b, "  tradeoff: %s\n\n", p.Threat.Tradeoff)
	}
	return b.String()
}
