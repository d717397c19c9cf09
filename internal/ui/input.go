package ui

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

// GetInputFromUser prompts user for prefix and suffix. Each prompt repeats until the
// answer is valid base58, and both are asked again while neither is set. Input ending
// early returns whatever was read.
func GetInputFromUser(reader *bufio.Reader) (string, string) {
	fmt.Printf("    %s🎯 TARGET PATTERN%s\n", ColorPurple+ColorBold, ColorReset)

	for {
		prefix, err := readPattern(reader, "Prefix")
		if err != nil {
			return prefix, ""
		}
		suffix, err := readPattern(reader, "Suffix")
		if err != nil || prefix != "" || suffix != "" {
			return prefix, suffix
		}
		fmt.Printf("    %s⚠ Enter a prefix, a suffix, or both%s\n", ColorYellow, ColorReset)
	}
}

func readPattern(reader *bufio.Reader, label string) (string, error) {
	for {
		fmt.Printf("    %s%s%s (...): ", ColorCyan, label, ColorReset)
		input, err := reader.ReadString('\n')
		pattern := strings.TrimSpace(input)

		if pattern == "" || solana.IsValidBase58(pattern) {
			return pattern, err
		}

		invalidChars := solana.InvalidBase58Chars(pattern)
		fmt.Printf("    %s⚠ Invalid Base58 character(s): %s%s\n", ColorRed, string(invalidChars), ColorReset)
		fmt.Printf("    %s  (Not allowed: 0, O, I, l)%s\n", ColorDim, ColorReset)
		if err != nil {
			return "", err
		}
	}
}

// DevicePicker returns a chooser that lists devices and reads a selection such as
// "0,2" or "1-3". An empty answer selects every device.
func DevicePicker(reader *bufio.Reader) func([]solana.Device) ([]solana.Device, error) {
	return func(devices []solana.Device) ([]solana.Device, error) {
		PrintDevices("select", devices)
		fmt.Printf("\n    %sDevices%s (e.g. 0,2 or 0-1, Enter for all): ", ColorCyan, ColorReset)

		input, _ := reader.ReadString('\n')
		idx, err := ParseDeviceSelection(input, len(devices))
		if err != nil {
			return nil, err
		}

		selected := make([]solana.Device, 0, len(idx))
		for _, i := range idx {
			selected = append(selected, devices[i])
		}
		fmt.Printf("    %s✓ %d device(s) selected%s\n\n", ColorGreen, len(selected), ColorReset)
		return selected, nil
	}
}

// ParseDeviceSelection parses a comma separated list of indices and ranges into sorted
// unique indices below n.
func ParseDeviceSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	chosen := make([]bool, n)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid device %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid device range %q", part)
			}
		}
		if first > last {
			first, last = last, first
		}
		if first < 0 || last >= n {
			return nil, fmt.Errorf("device %q out of range 0-%d", part, n-1)
		}
		for i := first; i <= last; i++ {
			chosen[i] = true
		}
	}

	var idx []int
	for i, ok := range chosen {
		if ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, errors.New("no devices selected")
	}
	return idx, nil
}

// AskToContinue prompts user to continue or exit
func AskToContinue(reader *bufio.Reader) bool {
	fmt.Printf("\n    %s[Enter]%s Search again  │  %s[Q]%s Exit\n", ColorGreen, ColorReset, ColorRed, ColorReset)
	fmt.Printf("    %s→%s ", ColorCyan, ColorReset)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input != "q" && input != "quit" && input != "exit"
}
