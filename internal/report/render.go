package report

import (
	"fmt"
	"strings"
	"time"

	"authload/internal/tui/styles"
)

// Render formats the summary for the terminal.
func Render(s Summary) string {
	b := strings.Builder{}

	b.WriteString(styles.Title.Render("📊 " + s.Workload + " results"))
	b.WriteString("\n\n")

	if s.Aborted {
		b.WriteString(styles.Error.Render("✗ run aborted before load: " + s.SetupError))
		b.WriteString("\n")
		b.WriteString(styles.Subtle.Render("no virtual users were started; thresholds not evaluated"))
		b.WriteString("\n")
		return b.String()
	}

	overview := fmt.Sprintf(
		"Duration:    %s\nVUs:         %d\nIterations:  %d (%d failed)\nRequests:    %d\nFailed reqs: %.2f%%",
		s.Elapsed.Round(time.Millisecond), s.Config.VUs,
		s.Iterations, s.FailedIterations,
		s.Requests, s.ErrorRate*100,
	)
	b.WriteString(styles.Active.Render("Overview"))
	b.WriteString("\n")
	b.WriteString(styles.Box.Render(overview))
	b.WriteString("\n\n")

	l := s.Latency
	latency := fmt.Sprintf(
		"avg=%.2fms min=%.2fms med=%.2fms p(90)=%.2fms p(95)=%.2fms p(99)=%.2fms max=%.2fms",
		l.Avg, l.Min, l.Med, l.P90, l.P95, l.P99, l.Max,
	)
	b.WriteString(styles.Active.Render("http_req_duration"))
	b.WriteString("\n")
	b.WriteString(styles.Box.Render(latency))
	b.WriteString("\n\n")

	if len(s.Checks) > 0 {
		b.WriteString(styles.Active.Render("Checks"))
		b.WriteString("\n")
		lines := make([]string, 0, len(s.Checks))
		for _, c := range s.Checks {
			mark := styles.Success.Render("✓")
			if c.Fails > 0 {
				mark = styles.Error.Render("✗")
			}
			lines = append(lines, fmt.Sprintf("%s %-28s %6.2f%%  ✓ %d  ✗ %d", mark, c.Name, c.Rate()*100, c.Passes, c.Fails))
		}
		b.WriteString(styles.Box.Render(strings.Join(lines, "\n")))
		b.WriteString("\n\n")
	}

	if len(s.Thresholds) > 0 {
		b.WriteString(styles.Active.Render("Thresholds"))
		b.WriteString("\n")
		lines := make([]string, 0, len(s.Thresholds))
		for _, t := range s.Thresholds {
			lines = append(lines, thresholdLine(t))
		}
		b.WriteString(styles.Box.Render(strings.Join(lines, "\n")))
		b.WriteString("\n\n")
	}

	if s.TeardownError != "" {
		b.WriteString(styles.Warn.Render("teardown failed: " + s.TeardownError))
		b.WriteString("\n")
	}

	if s.Passed {
		b.WriteString(styles.Success.Render("✓ all thresholds passed"))
	} else {
		b.WriteString(styles.Error.Render("✗ thresholds crossed"))
	}
	b.WriteString("\n")
	return b.String()
}

func thresholdLine(t ThresholdLine) string {
	switch {
	case t.Error != "":
		return styles.Error.Render(fmt.Sprintf("✗ %s %s: %s", t.Metric, t.Expr, t.Error))
	case t.NoData:
		return styles.Subtle.Render(fmt.Sprintf("✓ %s %s (no samples)", t.Metric, t.Expr))
	case t.Passed:
		return styles.Success.Render("✓") + fmt.Sprintf(" %s %s actual=%.4g", t.Metric, t.Expr, t.Actual)
	default:
		return styles.Error.Render("✗") + fmt.Sprintf(" %s %s actual=%.4g", t.Metric, t.Expr, t.Actual)
	}
}
