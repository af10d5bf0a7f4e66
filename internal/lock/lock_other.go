//go:build !darwin && !linux

// Package lock serializes writers to a mail root with an advisory file lock.
package lock

// Exclusive runs fn without locking on platforms without flock.
func Exclusive(_ string, fn func() error) error {
	return fn()
}
