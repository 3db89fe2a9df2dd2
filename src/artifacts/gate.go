package artifacts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"azdo-monitor/src/provider"
)

const dirHint = "Set AZDO_ARTIFACT_DIR (or artifact_dir in the config file) to a writable directory."

// PermissionGate decides whether artifacts may be written to a directory.
// Refusals are returned as *provider.PermissionDeniedError.
type PermissionGate interface {
	Request(ctx context.Context, dir string) error
}

// AllowAll grants every request.
type AllowAll struct{}

func (AllowAll) Request(ctx context.Context, dir string) error { return nil }

// DirGate grants access when dir exists, or can be created, and accepts writes.
type DirGate struct{}

func (DirGate) Request(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &provider.PermissionDeniedError{Path: dir, SettingsHint: dirHint}
	}
	probe, err := os.CreateTemp(dir, ".azdo-write-check-*")
	if err != nil {
		return &provider.PermissionDeniedError{Path: dir, SettingsHint: dirHint}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// PromptGate asks the user once per directory before writing to it, then
// defers to Next (DirGate when nil).
type PromptGate struct {
	In   io.Reader
	Out  io.Writer
	Next PermissionGate

	mu      sync.Mutex
	reader  *bufio.Reader
	granted map[string]bool
}

func (g *PromptGate) Request(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	g.mu.Lock()
	if g.granted == nil {
		g.granted = make(map[string]bool)
	}
	if !g.granted[abs] {
		if g.reader == nil {
			g.reader = bufio.NewReader(g.In)
		}
		fmt.Fprintf(g.Out, "Allow azdo to save artifacts in %s? [y/N] ", abs)
		answer, _ := g.reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			g.mu.Unlock()
			return &provider.PermissionDeniedError{
				Path:         abs,
				SettingsHint: "Answer y to the prompt, or pass --yes to skip it. " + dirHint,
			}
		}
		g.granted[abs] = true
	}
	g.mu.Unlock()

	next := g.Next
	if next == nil {
		next = DirGate{}
	}
	return next.Request(ctx, dir)
}
