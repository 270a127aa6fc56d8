package ir

// Release identifiers reported by `roster --version`.
const (
	// WireVersion is bumped whenever the envelope or payload layout
	// written to the event log changes incompatibly.
	WireVersion = "1"

	// EngineVersion is the roster release.
	EngineVersion = "0.1.0"
)

// VersionString renders both identifiers, e.g. "0.1.0 (wire v1)".
func VersionString() string {
	return EngineVersion + " (wire v" + WireVersion + ")"
}
