// internal/avatar/loader.go
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AssetExt is appended to asset names without an extension.
const AssetExt = ".txt"

// FrameSeparator splits an asset into frames: idle first, speaking second.
const FrameSeparator = "---"

// maxAssetSize keeps a bad asset from flooding the terminal.
const maxAssetSize = 256 << 10

var (
	errNoLoader    = errors.New("no asset loader configured")
	errLoaderPanic = errors.New("asset loader panicked")
	ErrEmptyAsset  = errors.New("asset has no art")
)

// Loader fetches the raw bytes of a named asset.
type Loader interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// DirLoader reads assets from a directory.
type DirLoader struct {
	Fs  afero.Fs
	Dir string
}

// NewDirLoader reads from dir on the OS filesystem.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Fs: afero.NewOsFs(), Dir: dir}
}

func (l *DirLoader) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := assetFile(name)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(l.Dir, file)
	info, err := l.Fs.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat asset: %w", err)
	}
	if info.Size() > maxAssetSize {
		return nil, fmt.Errorf("asset too large (%d bytes)", info.Size())
	}
	return afero.ReadFile(l.Fs, p)
}

// HTTPLoader fetches <Base>/avatars/<name>.txt.
type HTTPLoader struct {
	Base   string
	Client *http.Client
}

// NewHTTPLoader uses http.DefaultClient; the surface bounds each load with a timeout.
func NewHTTPLoader(base string) *HTTPLoader {
	return &HTTPLoader{Base: strings.TrimRight(base, "/"), Client: http.DefaultClient}
}

func (l *HTTPLoader) Load(ctx context.Context, name string) ([]byte, error) {
	file, err := assetFile(name)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(l.Base)
	if err != nil {
		return nil, fmt.Errorf("asset base: %w", err)
	}
	u.Path = path.Join(u.Path, "avatars", file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("asset too large")
	}
	return data, nil
}

func assetFile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	if path.Ext(name) == "" {
		name += AssetExt
	}
	return name, nil
}

// Parse splits text art into frames. Trailing blank lines of each frame are dropped.
func Parse(data []byte) ([][]string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")

	var frames [][]string
	var cur []string
	flush := func() {
		for len(cur) > 0 && strings.TrimSpace(cur[len(cur)-1]) == "" {
			cur = cur[:len(cur)-1]
		}
		for len(cur) > 0 && strings.TrimSpace(cur[0]) == "" {
			cur = cur[1:]
		}
		if len(cur) > 0 {
			frames = append(frames, cur)
		}
		cur = nil
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == FrameSeparator {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " "))
	}
	flush()

	if len(frames) == 0 {
		return nil, ErrEmptyAsset
	}
	return frames, nil
}

// placeholderFrames is the same shape for every agent; only the colour differs.
func placeholderFrames() [][]string {
	head := func(mouth string) []string {
		return []string{
			`   .-----.   `,
			`  /       \  `,
			` |  o   o  | `,
			` |    ^    | `,
			` |   ` + mouth + `   | `,
			`  \       /  `,
			`   '-----'   `,
			`    |   |    `,
			`  __|   |__  `,
			` /         \ `,
		}
	}
	return [][]string{head("---"), head("(O)")}
}
