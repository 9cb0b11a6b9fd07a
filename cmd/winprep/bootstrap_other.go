//go:build !windows

package main

func maybeReexec() (int, bool) {
	return 0, false
}
