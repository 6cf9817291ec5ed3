package sessions

import "strings"

// DefaultFilterLimit caps how many sessions a filter returns
const DefaultFilterLimit = 10

// Session is a launchable desktop session
type Session struct {
	Path    string `json:"path,omitempty"` // Desktop entry, empty for the configured default
	Name    string `json:"name"`
	Command string `json:"command"`
}

// IsDefault returns true for the configured default session
func (s Session) IsDefault() bool {
	return s.Path == ""
}

// Filter returns the first limit sessions whose name contains query
func Filter(list []Session, query string, limit int) []Session {
	if limit <= 0 {
		limit = DefaultFilterLimit
	}

	var out []Session
	for _, s := range list {
		if !strings.Contains(s.Name, query) {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
