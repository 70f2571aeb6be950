package dialect

// RetryClass is the severity tier of a transient driver error.
type RetryClass int

const (
	// NoRetry errors are surfaced immediately.
	NoRetry RetryClass = iota
	// Lite errors get a small retry budget.
	Lite
	// Main errors (deadlocks, serialization conflicts) get the larger budget.
	Main
)

// String returns the string representation of the class.
func (c RetryClass) String() string {
	switch c {
	case Lite:
		return "lite"
	case Main:
		return "main"
	default:
		return "none"
	}
}

// classifySQLState looks at the two-character SQLSTATE class.
func classifySQLState(state string, lite, main map[string]bool) RetryClass {
	if len(state) < 2 {
		return NoRetry
	}
	class := state[:2]
	switch {
	case main[class]:
		return Main
	case lite[class]:
		return Lite
	default:
		return NoRetry
	}
}
