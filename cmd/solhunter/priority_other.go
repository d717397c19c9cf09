//go:build !windows

package main

// raisePriority is a no-op outside Windows. Run under nice -n -20 for the same effect.
func raisePriority() error {
	return nil
}
