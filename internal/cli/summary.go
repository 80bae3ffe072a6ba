package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/rename-agent/internal/engine"
	"github.com/Veraticus/rename-agent/internal/model"
)

// FormatResult renders one line for a settled document.
func FormatResult(result engine.Result) string {
	from := filepath.Base(result.Path)

	switch result.Outcome {
	case model.OutcomeApplied:
		return SuccessStyle.Render(SuccessIcon+" ") + FormatRename(from, result.Decision.Name.Name)
	case model.OutcomeDryRun:
		return InfoStyle.Render("~ ") + FormatRename(from, result.Decision.Name.Name)
	case model.OutcomeSkippedCollision:
		return WarningStyle.Render(SkipIcon+" ") + FormatRename(from, result.Decision.Name.Name) +
			SubtleStyle.Render(" (name taken, skipped)")
	default:
		reason := "unknown error"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		return FormatError(from + ": " + reason)
	}
}

// RenderSummary renders the totals of a batch run in a box.
func RenderSummary(summary *engine.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • Documents: %d\n", summary.Total)
	if summary.DryRun > 0 {
		fmt.Fprintf(&b, "  • Previewed: %d\n", summary.DryRun)
	}
	fmt.Fprintf(&b, "  • Renamed: %d\n", summary.Applied)
	fmt.Fprintf(&b, "  • Skipped: %d\n", summary.Skipped)
	fmt.Fprintf(&b, "  • Failed: %d\n", summary.Failed)
	fmt.Fprintf(&b, "  • Time taken: %s", summary.Duration.Round(time.Millisecond))

	title := "Rename Complete"
	if summary.DryRun > 0 && summary.Applied == 0 {
		title = "Dry Run Complete"
	}
	return RenderBox(title, b.String())
}
