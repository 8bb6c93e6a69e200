package commands

import (
	"strings"
	"testing"
)

func TestParse_Blank(t *testing.T) {
	for _, input := range []string{"", "   ", "/", "  /  "} {
		if result := Parse(input); result != nil {
			t.Errorf("Parse(%q) = %v, want nil", input, result)
		}
	}
}

func TestParse_Simple(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
	}{
		{"/help", "help"},
		{"?", "help"},
		{"/HELP extra args ignored", "help"},
		{"/start", "start"},
		{"start", "start"},
		{"  s  ", "start"},
		{"/pause", "pause"},
		{"P", "pause"},
		{"/status", "status"},
		{"/quit", "quit"},
		{"exit", "quit"},
		{"q", "quit"},
	}

	for _, tt := range tests {
		result := Parse(tt.input)
		if result == nil {
			t.Errorf("Parse(%q) = nil, want %s", tt.input, tt.wantType)
			continue
		}
		if result.Type() != tt.wantType {
			t.Errorf("Parse(%q).Type() = %q, want %q", tt.input, result.Type(), tt.wantType)
		}
	}
}

func TestParse_Export(t *testing.T) {
	tests := []struct {
		input    string
		wantPath string
	}{
		{"/export", ""},
		{"/export debate.md", "debate.md"},
		{"x  notes/my debate.md", "notes/my debate.md"},
	}

	for _, tt := range tests {
		result := Parse(tt.input)
		ex, ok := result.(Export)
		if !ok {
			t.Errorf("Parse(%q) = %T, want Export", tt.input, result)
			continue
		}
		if ex.Path != tt.wantPath {
			t.Errorf("Parse(%q).Path = %q, want %q", tt.input, ex.Path, tt.wantPath)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, input := range []string{"/resume", "hello world", "/new debate"} {
		result := Parse(input)
		pe, ok := result.(ParseError)
		if !ok {
			t.Errorf("Parse(%q) = %T, want ParseError", input, result)
			continue
		}
		if !strings.Contains(pe.Message, "unknown command") {
			t.Errorf("Parse(%q).Message = %q", input, pe.Message)
		}
		if pe.Type() != "error" {
			t.Errorf("Parse(%q).Type() = %q, want error", input, pe.Type())
		}
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	text := HelpText()
	for _, cmd := range []string{"/start", "/pause", "/status", "/export", "/help", "/quit"} {
		if !strings.Contains(text, cmd) {
			t.Errorf("help text missing %s", cmd)
		}
	}
}
