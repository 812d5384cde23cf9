package util

import "strings"

// NormalizeSymbol trims, upper-cases and strips an exchange suffix such as ".NS".
// It returns false when the result is empty or holds characters outside [A-Z0-9&_-].
func NormalizeSymbol(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		switch s[i+1:] {
		case "NS", "BO":
			s = s[:i]
		}
	}
	if s == "" || len(s) > 20 {
		return "", false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '&', r == '-', r == '_':
		default:
			return "", false
		}
	}
	return s, true
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
