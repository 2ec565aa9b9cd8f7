package textutil

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LessID orders item identifiers: numeric ids compare numerically, anything
// else by string order.
func LessID(a, b string) bool {
	if len(a) != len(b) && IsDigits(a) && IsDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}
