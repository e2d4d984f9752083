package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/ciforge/internal/gradle"
	"github.com/felixgeelhaar/ciforge/internal/task"
)

// runSummary is what the orchestrator reads back after a run
type runSummary struct {
	RunID        string   `json:"run_id"`
	Project      string   `json:"project"`
	Version      string   `json:"version"`
	FinalVersion string   `json:"final_version"`
	Success      bool     `json:"success"`
	Target       string   `json:"target,omitempty"`
	SHA1         string   `json:"sha1,omitempty"`
	BLAKE3       string   `json:"blake3,omitempty"`
	LogKey       string   `json:"log_key"`
	Uploaded     []string `json:"uploaded,omitempty"`
}

func newRunSummary(t *task.BuildTask, uploaded []string) runSummary {
	return runSummary{
		RunID:        t.RunID,
		Project:      t.Project.RemotePrefix(),
		Version:      t.Version,
		FinalVersion: t.FinalVersion,
		Success:      t.Success,
		Target:       t.Target,
		SHA1:         t.SHA1,
		BLAKE3:       t.BLAKE3,
		LogKey:       gradle.LogKey(t),
		Uploaded:     uploaded,
	}
}

// summaryStyles holds the lipgloss styles of the console summary
type summaryStyles struct {
	Title lipgloss.Style
	Key   lipgloss.Style
	Value lipgloss.Style
	OK    lipgloss.Style
	Fail  lipgloss.Style
	Box   lipgloss.Style
}

func defaultSummaryStyles() summaryStyles {
	return summaryStyles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Gray
			Width(10),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		OK: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Fail: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
	}
}

func writeSummary(w io.Writer, s runSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	_, err := fmt.Fprintln(w, renderSummary(s))
	return err
}

func renderSummary(s runSummary) string {
	st := defaultSummaryStyles()
	status := st.OK.Render("✓ build succeeded")
	if !s.Success {
		status = st.Fail.Render("✗ build failed")
	}

	var b strings.Builder
	b.WriteString(st.Title.Render("ciforge " + s.Project))
	b.WriteString("\n")
	b.WriteString(status)
	b.WriteString("\n\n")

	row := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(st.Key.Render(key))
		b.WriteString(st.Value.Render(value))
		b.WriteString("\n")
	}
	row("run", s.RunID)
	row("version", s.FinalVersion)
	row("artifact", s.Target)
	row("sha1", s.SHA1)
	row("blake3", s.BLAKE3)
	row("log", s.LogKey)
	for _, key := range s.Uploaded {
		row("uploaded", key)
	}

	return st.Box.Render(strings.TrimRight(b.String(), "\n"))
}
