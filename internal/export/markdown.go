// internal/export/markdown.go
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"debatewatch/internal/controller"
)

// Transcript contains the data needed to export a session timeline
type Transcript struct {
	SessionID  string
	Status     string
	StartedAt  time.Time
	ExportedAt time.Time
	Agents     []controller.AgentView
	Entries    []controller.Entry
}

// FromView builds a transcript from a controller snapshot.
func FromView(v controller.View, now time.Time) *Transcript {
	t := &Transcript{
		SessionID:  v.SessionID,
		Status:     v.Status,
		ExportedAt: now,
		Agents:     v.Agents,
		Entries:    v.Timeline,
	}
	if len(v.Timeline) > 0 {
		t.StartedAt = v.Timeline[0].At
	} else {
		t.StartedAt = now
	}
	return t
}

// Render generates a formatted markdown string from a transcript
func Render(t *Transcript) string {
	var sb strings.Builder

	sb.WriteString("# Debate transcript\n\n")

	sb.WriteString("---\n\n")
	if t.SessionID != "" {
		sb.WriteString(fmt.Sprintf("**Session:** `%s`\n\n", t.SessionID))
	}
	sb.WriteString(fmt.Sprintf("**Started:** %s\n\n", t.StartedAt.Format("2006-01-02 15:04:05")))
	if t.Status != "" {
		sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", t.Status))
	}

	if len(t.Agents) > 0 {
		sb.WriteString("**Participants:** ")
		sb.WriteString(strings.Join(formatParticipants(t.Agents), ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString("## Timeline\n\n")

	if len(t.Entries) == 0 {
		sb.WriteString("_No events recorded._\n")
	}
	for _, e := range t.Entries {
		switch e.Kind {
		case controller.KindIteration:
			sb.WriteString(fmt.Sprintf("### [%s] %s\n\n", e.Elapsed, e.Text))
		case controller.KindSpeech:
			sb.WriteString(fmt.Sprintf("`%s`\n", e.Elapsed))
			for _, line := range strings.Split(strings.TrimSpace(e.Text), "\n") {
				sb.WriteString("> ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		case controller.KindError:
			sb.WriteString(fmt.Sprintf("- `%s` **%s**\n\n", e.Elapsed, e.Text))
		default:
			sb.WriteString(fmt.Sprintf("- `%s` %s\n\n", e.Elapsed, e.Text))
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from debatewatch on %s*\n", t.ExportedAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

// Write renders t to path, or to <dir>/transcripts/<date>-<session>.md when
// path is empty. It returns the path written.
func Write(fs afero.Fs, t *Transcript, dir, path string) (string, error) {
	if path == "" {
		name := fmt.Sprintf("%s-%s.md", t.StartedAt.Format("2006-01-02-150405"), sanitizeFilename(shortID(t.SessionID)))
		path = filepath.Join(dir, "transcripts", name)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create transcript directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, []byte(Render(t)), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// formatParticipants lists agents with their last need reading
func formatParticipants(agents []controller.AgentView) []string {
	result := make([]string, len(agents))
	for i, a := range agents {
		if a.HasNeed {
			result[i] = fmt.Sprintf("%s (life purpose %d%%, %s)", a.Name, a.Percent, a.Band)
		} else {
			result[i] = a.Name
		}
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// sanitizeFilename removes/replaces characters unsuitable for filenames
func sanitizeFilename(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))

	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-")

	if result == "" {
		result = "session"
	}
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}
