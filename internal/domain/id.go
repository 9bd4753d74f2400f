package domain

import "regexp"

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidID reports whether id matches the node id grammar [a-zA-Z0-9_-]+.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}
