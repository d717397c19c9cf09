// Package common holds OpenCL platform details shared by kernel builders and backends.
package common

import "strings"

// BuildOptions are the default compiler flags passed to clBuildProgram.
// -cl-fast-relaxed-math: Enables fast math optimizations
// -cl-mad-enable: Enables multiply-add fusion
const BuildOptions = "-cl-fast-relaxed-math -cl-mad-enable"

// Platform describes the compute environment a kernel is specialized for.
type Platform struct {
	Names       []string // Names of every available compute platform
	HeaderMajor int      // Major version of the compute-API headers the host was built against
	OS          string   // runtime.GOOS of the host
}

// HasVendor reports whether any platform name contains vendor.
func (p Platform) HasVendor(vendor string) bool {
	for _, name := range p.Names {
		if strings.Contains(name, vendor) {
			return true
		}
	}
	return false
}

// KeepGenericQualifier reports whether the kernel may define the empty __generic
// qualifier macro. NVIDIA's Windows compiler and non-Windows 2.x/3.x headers reject
// the redefinition, so the macro is dropped for them.
func (p Platform) KeepGenericQualifier() bool {
	if p.HasVendor("NVIDIA") && p.OS == "windows" {
		return false
	}
	if p.HeaderMajor != 1 && p.OS != "windows" {
		return false
	}
	return true
}
