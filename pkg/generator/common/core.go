package common

import (
	"fmt"
	"os"
	"strings"
)

// CoreFunctions are the routines every Ed25519 core must provide to the entry kernels.
var CoreFunctions = []string{
	"ed25519_derive_public_key",
	"b58_encode",
}

// DefaultCorePath is where the CLI looks for the shared Ed25519 core.
const DefaultCorePath = "kernels/ed25519_core.cl"

// LoadCore reads the shared Ed25519 core implementation from disk.
func LoadCore(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading kernel core: %w", err)
	}
	core := string(data)
	if err := CheckCore(core); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return core, nil
}

// CheckCore verifies that core at least mentions every function in CoreFunctions.
func CheckCore(core string) error {
	var missing []string
	for _, fn := range CoreFunctions {
		if !strings.Contains(core, fn) {
			missing = append(missing, fn)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("kernel core is missing %s", strings.Join(missing, ", "))
	}
	return nil
}
