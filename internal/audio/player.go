// internal/audio/player.go
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FilePlaceholder in a command template is replaced by the clip path.
const FilePlaceholder = "{file}"

// DefaultCommand plays a file without a window and exits at the end.
var DefaultCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", FilePlaceholder}

// ExecPlayer runs an external program per clip. The program is killed when
// the context is cancelled.
type ExecPlayer struct {
	Command []string
}

// NewExecPlayer uses DefaultCommand when command is empty.
func NewExecPlayer(command []string) *ExecPlayer {
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &ExecPlayer{Command: command}
}

// Args expands the template for one clip path. The path is appended when the
// template has no placeholder.
func (p *ExecPlayer) Args(path string) []string {
	args := make([]string, 0, len(p.Command)+1)
	replaced := false
	for _, a := range p.Command {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}

func (p *ExecPlayer) Play(ctx context.Context, clip Clip) error {
	args := p.Args(clip.Path)
	if len(args) == 0 {
		return fmt.Errorf("no player command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// Available reports whether the player binary is on PATH.
func (p *ExecPlayer) Available() bool {
	if len(p.Command) == 0 {
		return false
	}
	_, err := exec.LookPath(p.Command[0])
	return err == nil
}
