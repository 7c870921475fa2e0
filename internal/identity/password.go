package identity

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMode controls bcrypt cost for password hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost (10) for secure password hashing.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	PasswordModeTesting
)

// Cost returns the bcrypt cost for this mode.
// Panics if PasswordModeTesting is used outside of a test binary.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("identity: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}
