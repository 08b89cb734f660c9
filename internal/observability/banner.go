package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

var radarFrames = []string{"◜", "◝", "◞", "◟"}
var radarIdx = 0

// termMu synchronizes ALL terminal output so that the cursor
// save/restore in PrintLiveStatus can never be interrupted by a log write.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ------------------------------------------------------------
// TermWriter – a mutex-guarded io.Writer for log output.
// Every log.Println call will go through this writer, ensuring
// the cursor is safely inside the scroll region before writing.
// ------------------------------------------------------------

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
// It serialises writes with PrintLiveStatus via termMu.
func NewTermWriter() *termWriter {
	return &termWriter{}
}

// ------------------------------------------------------------
// Banner
// ------------------------------------------------------------

func PrintBanner() {
	fmt.Print("\033[2J\033[H")

	banner := `
  ____ _   _  ___  ____ _____ _   _    _    _   _ ____
 / ___| | | |/ _ \/ ___|_   _| | | |  / \  | \ | |  _ \
| |  _| |_| | | | \___ \ | | | |_| | / _ \ |  \| | | | |
| |_| |  _  | |_| |___) || | |  _  |/ ___ \| |\  | |_| |
 \____|_| |_|\___/|____/ |_| |_| |_/_/   \_\_| \_|____/

            >> PERSONAL AUTOMATION AGENT <<
`

	width := termWidth()
	lines := strings.Split(banner, "\n")

	// Center on the widest line so the art keeps its shape.
	widest := 0
	for _, l := range lines {
		if len(l) > widest {
			widest = len(l)
		}
	}
	padding := clamp((width-widest)/2, 0, width)

	for _, l := range lines {
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

func InitializeTerminal() {
	// Header/Logo area: 1-9
	// Dashboard/Status: 10
	// Gap: 11
	// Scrolling Logs: 12+
	fmt.Print("\033[12;r")  // Set scrolling region from line 12 to the bottom
	fmt.Print("\033[12;1H") // Move cursor to the start of the scrolling region
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

// ------------------------------------------------------------
// Live Status
// ------------------------------------------------------------

// pulse maps the time since the last heartbeat to a health badge.
func pulse(delta time.Duration) (icon, text, color string) {
	switch {
	case delta < 40*time.Second:
		return "🟢", "HEALTHY", colorNeonCyan
	case delta < 90*time.Second:
		return "🟡", "LAGGING", colorPurple
	default:
		return "🔴", "OFFLINE", colorNeonMag
	}
}

func phaseBadge(phase Phase) (icon, color string) {
	switch phase {
	case PhasePlanning:
		return "🧭", colorNeonCyan
	case PhaseExecuting:
		return "⚙️", colorNeonMag
	case PhaseScheduled:
		return "⏰", colorPurple
	default:
		return "💤", colorReset
	}
}

func memGauge(m *runtime.MemStats) (bar, color string, allocMB float64) {
	allocMB = float64(m.Alloc) / 1024 / 1024
	frac := allocMB / (float64(m.Sys) / 1024 / 1024)

	const width = 20
	filled := clamp(int(frac*width), 0, width)
	bar = strings.Repeat("█", filled) + strings.Repeat("▒", width-filled)

	color = colorNeonCyan
	if frac > 0.7 {
		color = colorNeonMag
	}
	return bar, color, allocMB
}

// PrintLiveStatus repaints the one-line dashboard on row 10. The whole
// escape sequence is written under termMu so a concurrent log line can
// never land between the cursor save and restore.
func PrintLiveStatus() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	phase, goal, lastHB := GetStatus()

	pulseIcon, pulseText, pulseColor := pulse(time.Since(lastHB))
	phaseIcon, phaseColor := phaseBadge(phase)
	bar, barColor, allocMB := memGauge(&m)

	radar := " "
	if phase != PhaseIdle {
		radar = radarFrames[radarIdx]
		radarIdx = (radarIdx + 1) % len(radarFrames)
	}

	displayGoal := goal
	if displayGoal == "" {
		displayGoal = "Waiting..."
	}
	if len(displayGoal) > 25 {
		displayGoal = displayGoal[:22] + "..."
	}

	uptime := time.Since(startTime).Round(time.Second)

	statusStr := fmt.Sprintf(
		"\033[s\033[10;1H\033[K%s[%s] %s%s %-10s%s | %s[%s%s %-9s%s] [%s] %s%s%s [%v] [%s%s %.1fMB%s]\033[u",
		colorReset,
		lastHB.Format("15:04:05"),
		pulseColor, pulseIcon, pulseText, colorReset,
		colorReset,
		phaseColor, phaseIcon, phase, colorReset,
		displayGoal,
		colorPurple, radar, colorReset,
		uptime,
		barColor, bar, allocMB, colorReset,
	)

	termMu.Lock()
	fmt.Print(statusStr)
	termMu.Unlock()
}
