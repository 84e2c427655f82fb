package permissions

// Status is the microphone authorization state reported by the OS.
type Status int

const (
	NotDetermined Status = 0
	Restricted    Status = 1
	Denied        Status = 2
	Authorized    Status = 3
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Hint returns what the user should do about s, or "" when nothing is needed.
// Device enumeration works without authorization, but names and volumes of
// some devices may be withheld.
func (s Status) Hint() string {
	switch s {
	case Authorized:
		return ""
	case NotDetermined:
		return "Run micwatch once from a terminal and accept the microphone prompt"
	default:
		return "Go to: System Settings → Privacy & Security → Microphone"
	}
}
