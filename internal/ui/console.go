package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Amr-9/SolHunter/pkg/generator"
	"github.com/Amr-9/SolHunter/pkg/generator/solana"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// ClearScreen clears the terminal
func ClearScreen() {
	fmt.Print("\033[H\033[2J")
}

// PrintWelcomeBanner shows the welcome screen
func PrintWelcomeBanner(version string) {
	fmt.Println()
	fmt.Printf("%s%s", ColorCyan, ColorBold)
	fmt.Println("  ╔══════════════════════════════════════════════════════════╗")
	fmt.Println("  ║   ◎  S O L H U N T E R                                   ║")
	fmt.Println("  ╠══════════════════════════════════════════════════════════╣")
	fmt.Printf("  ║%s   GPU Vanity Address Search %s• v%-8s%s                   ║\n", ColorYellow, ColorDim, version, ColorCyan+ColorBold)
	fmt.Println("  ╚══════════════════════════════════════════════════════════╝")
	fmt.Print(ColorReset)
	fmt.Println()
}

// PrintSearchInfo displays search configuration
func PrintSearchInfo(req generator.Request, difficulty uint64, backend string) {
	fmt.Printf("\n    %s🚀 SEARCHING%s", ColorGreen+ColorBold, ColorReset)
	fmt.Printf(" %s%s%s", ColorBold+ColorCyan, PatternLabel(req.Prefix, req.Suffix), ColorReset)
	fmt.Printf(" %s(1/%s)%s\n", ColorDim, FormatNumber(difficulty), ColorReset)
	fmt.Printf("    %s%d keypair(s) • 2^%d keys per round • %s • %s%s\n\n",
		ColorDim, req.Count, req.IterationBits, backend, req.OutputDir, ColorReset)
}

// PatternLabel renders a pattern the way the address would look, e.g. "ABC...xyz".
func PatternLabel(prefix, suffix string) string {
	switch {
	case prefix != "" && suffix != "":
		return prefix + "..." + suffix
	case prefix != "":
		return prefix + "..."
	case suffix != "":
		return "..." + suffix
	}
	return "..."
}

// PrintProgress shows animated progress bar
func PrintProgress(stats generator.Stats, difficulty uint64, found, count int, frame int) {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	bar := ProbabilityBar(stats.Attempts, difficulty, 30)
	speedStr := FormatHashRate(stats.HashRate)

	fmt.Printf("\r    %s%s%s %s%s%s %s%s%s │ %s%s%s │ %s%d/%d%s │ %s",
		ColorCyan, spinner, ColorReset,
		ColorDim, bar, ColorReset,
		ColorGreen+ColorBold, speedStr, ColorReset,
		ColorYellow, FormatNumber(stats.Attempts), ColorReset,
		ColorPurple, found, count, ColorReset,
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))))
}

// ProbabilityBar draws the chance of at least one hit after attempts keys. The bar is
// half full when attempts reach half the difficulty.
func ProbabilityBar(attempts, difficulty uint64, width int) string {
	diff := float64(difficulty)
	if diff == 0 {
		diff = 1
	}

	ratio := float64(attempts) / diff
	progress := 1.0 - math.Pow(0.5, 2.0*ratio)

	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

// FormatHashRate formats hash rate nicely
func FormatHashRate(rate float64) string {
	if rate >= 1000000 {
		return fmt.Sprintf("%.1fM/s", rate/1000000)
	}
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// PrintMatch shows a found address
func PrintMatch(m solana.Match, n, count int) {
	ClearLine()
	fmt.Printf("\n    %s%s✨ ADDRESS FOUND (%d/%d)%s\n", ColorGreen, ColorBold, n, count, ColorReset)
	fmt.Printf("    %s◎ %s%s%s\n", ColorCyan+ColorBold, ColorGreen, m.Address, ColorReset)
	if m.Path != "" {
		fmt.Printf("    %s💾  %s%s\n", ColorYellow, m.Path, ColorReset)
	} else {
		fmt.Printf("    %s⚠  not saved: %v%s\n", ColorRed, m.PersistErr, ColorReset)
	}
}

// PrintSummary shows the final outcome of a search
func PrintSummary(out generator.Outcome, stats generator.Stats) {
	ClearLine()
	fmt.Println()
	if out.Success {
		fmt.Printf("    %s%s╔══════════════════════════════════════════════════════════╗%s\n", ColorGreen, ColorBold, ColorReset)
		fmt.Printf("    %s%s║               ✨ SEARCH COMPLETE ✨                      ║%s\n", ColorGreen, ColorBold, ColorReset)
		fmt.Printf("    %s%s╚══════════════════════════════════════════════════════════╝%s\n\n", ColorGreen, ColorBold, ColorReset)
	} else {
		fmt.Printf("    %s%s✗ SEARCH FAILED:%s %s\n\n", ColorRed, ColorBold, ColorReset, out.Error)
	}

	for _, r := range out.Results {
		path := r.FilePath
		if path == "" {
			path = "(not saved)"
		}
		fmt.Printf("    %s◎ %s%s  %s%s%s\n", ColorGreen+ColorBold, r.Address, ColorReset, ColorDim, path, ColorReset)
	}
	for _, w := range out.Warnings {
		fmt.Printf("    %s⚠  %s%s\n", ColorYellow, w, ColorReset)
	}

	fmt.Printf("\n    %s⏱   %s%s   %s│   %s📊  %s%s   %s│   %s🔁  %s%d rounds%s\n\n",
		ColorCyan, ColorReset+ColorBold, FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))),
		ColorDim,
		ColorPurple, ColorReset+ColorBold, FormatNumber(stats.Attempts),
		ColorDim,
		ColorYellow, ColorReset+ColorBold, stats.Rounds,
		ColorReset)
	if out.Count > 0 {
		fmt.Printf("    %s%s⚠  KEEP YOUR KEYPAIR FILES SECRET!%s\n", ColorRed, ColorBold, ColorReset)
	}
}

// PrintDevices lists the devices a backend can use
func PrintDevices(backend string, devices []solana.Device) {
	fmt.Printf("    %s🎮 DEVICES%s %s(%s)%s\n", ColorPurple+ColorBold, ColorReset, ColorDim, backend, ColorReset)
	if len(devices) == 0 {
		fmt.Printf("    %s%v%s\n", ColorRed, generator.ErrNoDevice, ColorReset)
		return
	}
	for i, d := range devices {
		fmt.Printf("    %s[%d]%s %s %s(%s • %s • %d CUs • %s)%s\n",
			ColorCyan, i, ColorReset, d.Name, ColorDim, d.Platform, d.Type, d.ComputeUnits, FormatBytes(d.GlobalMem), ColorReset)
	}
}

// ClearLine clears the current line
func ClearLine() {
	fmt.Print("\r                                                                                              \r")
}

// WaitForExit waits for user to press Enter before exiting
func WaitForExit() {
	fmt.Printf("\n    %sPress Enter to exit...%s", ColorDim, ColorReset)
	var input string
	fmt.Scanln(&input)
}

// FormatNumber adds commas to large numbers
func FormatNumber(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatBytes renders a memory size in binary units.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}
