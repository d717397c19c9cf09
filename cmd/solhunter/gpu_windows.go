//go:build windows

package main

// Hybrid-graphics laptops hand OpenCL work to the integrated GPU unless the binary
// exports these symbols, which the NVIDIA Optimus and AMD PowerXpress drivers look
// for at load time.

/*
#include <stdint.h>

__declspec(dllexport) uint32_t NvOptimusEnablement = 1;
__declspec(dllexport) uint32_t AmdPowerXpressRequestHighPerformance = 1;
*/
import "C"
