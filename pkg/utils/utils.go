// Package utils contains some common utilities used by all other packages.
package utils

import "strings"

// IntersectColumns returns the columns of ordered that also appear in other.
// The order of ordered is preserved.
func IntersectColumns(ordered, other []string) []string {
	var intersection []string
	for _, col := range ordered {
		for _, col2 := range other {
			if col == col2 {
				intersection = append(intersection, col)
				break
			}
		}
	}
	return intersection
}

// MissingColumns returns the columns of ordered that do not appear in other.
func MissingColumns(ordered, other []string) []string {
	var missing []string
	for _, col := range ordered {
		found := false
		for _, col2 := range other {
			if col == col2 {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}

// ErrInErr is a wrapper func to not nest too deeply in an error being handled
// inside of an already error path. Not catching the error makes linters unhappy,
// but because it's already in an error path, there's not much to do.
func ErrInErr(_ error) {
}

// StripPort removes a trailing :port from hostname.
func StripPort(hostname string) string {
	if strings.Contains(hostname, ":") {
		return strings.Split(hostname, ":")[0]
	}
	return hostname
}
