package cli

import (
	"fmt"
	"strings"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Terminal progress bars for levels and goals.
// Shows: [=============>................]  42%

const barWidth = 30 // Characters for the progress bar

// progressBar renders pct (0-100) as a fixed-width bar.
func progressBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	var bar string
	if filled == barWidth {
		bar = strings.Repeat("=", filled)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty)
	} else {
		bar = strings.Repeat(".", barWidth)
	}
	return fmt.Sprintf("[%s] %3.0f%%", bar, pct)
}

// ratioBar renders current/target as a bar followed by the counts.
func ratioBar(current, target int) string {
	pct := 0.0
	if target > 0 {
		pct = float64(current) / float64(target) * 100
	}
	return fmt.Sprintf("%s  %d/%d", progressBar(pct), current, target)
}
