// Package domain contains the core domain types for the permaweb context.
package domain

import "regexp"

// Transaction identifiers and wallet addresses share the same wire shape: a
// 43-character base64url string.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// ValidTransactionID reports whether s is a well-formed transaction id.
func ValidTransactionID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidAddress reports whether s is a well-formed wallet address.
func ValidAddress(s string) bool {
	return idPattern.MatchString(s)
}
