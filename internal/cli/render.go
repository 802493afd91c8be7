package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vampirenirmal/testloop/internal/core"
	"github.com/vampirenirmal/testloop/internal/service"
)

var (
	colorOK      = lipgloss.Color("#2CD7C7")
	colorFail    = lipgloss.Color("#E74C3C")
	colorPending = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#6C7A89")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	OK      lipgloss.Style
	Fail    lipgloss.Style
	Pending lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true),
	Label:   lipgloss.NewStyle().Width(10).Foreground(colorMuted),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	OK:      lipgloss.NewStyle().Foreground(colorOK),
	Fail:    lipgloss.NewStyle().Foreground(colorFail),
	Pending: lipgloss.NewStyle().Foreground(colorPending),
	Box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
}

// emitEnvelopes prints envs and returns ErrOperationFailed if any failed.
func emitEnvelopes(cmd *cobra.Command, opts *globalOptions, envs ...*service.Envelope) error {
	out := cmd.OutOrStdout()
	if opts.pretty {
		for _, env := range envs {
			fmt.Fprint(out, renderEnvelope(env))
		}
	} else {
		var err error
		if len(envs) == 1 {
			err = writeJSON(out, envs[0])
		} else {
			err = writeJSON(out, envs)
		}
		if err != nil {
			return err
		}
	}

	for _, env := range envs {
		if !env.Success {
			return ErrOperationFailed
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusMark(status core.Status) string {
	switch status {
	case core.StatusCompleted:
		return styles.OK.Render("✓")
	case core.StatusFailed:
		return styles.Fail.Render("✗")
	default:
		return styles.Pending.Render("…")
	}
}

func renderEnvelope(env *service.Envelope) string {
	var b strings.Builder

	verdict := styles.OK.Bold(true).Render("PASS")
	if !env.Success {
		verdict = styles.Fail.Bold(true).Render("FAIL")
	}
	fmt.Fprintf(&b, "%s %s\n", verdict, styles.Title.Render(env.Operation))

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s%s\n", styles.Label.Render(label), value)
		}
	}
	field("run", env.RunID)
	field("service", env.ServicePath)
	field("test", env.TestPath)
	field("fidelity", string(env.Fidelity))
	field("duration", fmt.Sprintf("%dms", env.DurationMS))
	if env.Message != "" {
		field("message", env.Message)
	}

	if a := env.Analysis; a != nil {
		fmt.Fprintf(&b, "\n%s %s.%s\n", styles.Title.Render("class"), a.PackageName, a.ClassName)
		for _, d := range a.Dependencies {
			fmt.Fprintf(&b, "  %s %s: %s\n", styles.Muted.Render("dep"), d.Name, d.Type)
		}
		for _, m := range a.Methods {
			vis := "fun"
			if m.IsPrivate {
				vis = "private fun"
			}
			fmt.Fprintf(&b, "  %s %s(%d): %s\n", styles.Muted.Render(vis), m.Name, len(m.Parameters), m.ReturnType)
		}
	}

	if len(env.Steps) > 0 {
		b.WriteString("\n")
		for _, s := range env.Steps {
			fmt.Fprintf(&b, "%s %d. %-20s %s\n", statusMark(s.Status), s.Step, s.Name, s.Message)
			if s.Error != "" {
				fmt.Fprintf(&b, "   %s\n", styles.Fail.Render(firstLine(s.Error)))
			}
			for _, patch := range remediationPatches(s.Result) {
				b.WriteString(styles.Box.Render(strings.TrimRight(patch, "\n")))
				b.WriteString("\n")
			}
		}
	}

	if c := env.Coverage; c != nil {
		if c.Success {
			field("coverage", styles.OK.Render(c.ReportPath))
		} else {
			field("coverage", styles.Fail.Render(firstLine(c.Error)))
		}
	}
	if env.Error != "" {
		fmt.Fprintf(&b, "\n%s\n", styles.Fail.Render(env.Error))
	}
	b.WriteString("\n")
	return b.String()
}

// remediationPatches pulls the applied fixes out of a loop step result. The
// result is a typed value for live runs and a decoded map for archived ones,
// so both go through JSON.
func remediationPatches(result any) []string {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	var decoded struct {
		Attempts []core.Attempt `json:"attempts"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}

	var patches []string
	for _, a := range decoded.Attempts {
		if a.Remediation != nil && a.Remediation.Patch != "" {
			patches = append(patches, a.Remediation.Patch)
		}
	}
	return patches
}

func renderRuns(runs []*core.Run) string {
	if len(runs) == 0 {
		return styles.Muted.Render("no archived runs") + "\n"
	}

	var b strings.Builder
	for _, r := range runs {
		mark := styles.OK.Render("✓")
		if !r.Success {
			mark = styles.Fail.Render("✗")
		}
		fmt.Fprintf(&b, "%s %s  %s  %-26s %s\n",
			mark,
			styles.Muted.Render(r.Timestamp.Local().Format("2006-01-02 15:04:05")),
			r.ID,
			r.Operation,
			r.Target)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
