// Package commands parses the text controls of the debatewatch client.
// The TUI accepts them after a slash; the headless runner reads them one
// per line from stdin, where the slash is optional.
package commands

import (
	"strings"
)

// Command interface for all command types
type Command interface {
	Type() string
}

// Help returns help text
type Help struct{}

func (Help) Type() string { return "help" }

// Start opens a debate session
type Start struct{}

func (Start) Type() string { return "start" }

// Pause closes the current session
type Pause struct{}

func (Pause) Type() string { return "pause" }

// Status prints the current status line
type Status struct{}

func (Status) Type() string { return "status" }

// Export writes the timeline to a markdown file
type Export struct {
	Path string
}

func (Export) Type() string { return "export" }

// Quit exits the client
type Quit struct{}

func (Quit) Type() string { return "quit" }

// ParseError represents a command parsing error
type ParseError struct {
	Message string
}

func (ParseError) Type() string { return "error" }

// Parse parses one line of input. Returns nil for blank input.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" || input == "/" {
		return nil
	}

	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		return Help{}

	case "start", "s":
		return Start{}

	case "pause", "p":
		return Pause{}

	case "status":
		return Status{}

	case "export", "x":
		return Export{Path: strings.Join(args, " ")}

	case "quit", "q", "exit":
		return Quit{}

	default:
		return ParseError{Message: "unknown command: " + cmd}
	}
}

// HelpText returns the help text for all available commands.
func HelpText() string {
	return `Available commands:
  /start          - Connect and start the debate
  /pause          - Close the current session
  /status         - Show the session status
  /export [path]  - Export the timeline as markdown
  /help           - Show this help
  /quit           - Exit`
}
