//go:build !windows

package main

// Outside Windows the discrete GPU is chosen by the platform, e.g. DRI_PRIME=1 on Linux.
