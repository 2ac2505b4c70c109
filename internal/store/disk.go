package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const (
	// RunDirPrefix names the per-run directories created under a temp root.
	RunDirPrefix = "ascivid-"

	framePrefix = "frame_"
	frameSuffix = ".txt"
)

// FileName returns the on-disk name for a frame index: frame_000042.txt.
func FileName(index int) string {
	return fmt.Sprintf("%s%06d%s", framePrefix, index, frameSuffix)
}

// DiskOptions tunes NewDisk.
type DiskOptions struct {
	// Keep writes straight into the root and leaves the files behind on Close.
	Keep bool
	// RunID names the run directory. A random one is used when nil.
	RunID uuid.UUID
}

// Disk stores one UTF-8 file per frame. Files appear atomically, so a reader never sees half a frame.
type Disk struct {
	root        string
	dir         string
	createdRoot bool
	keep        bool

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	changed chan struct{}
	closed  bool
}

// NewDisk prepares a frame directory under root (os.TempDir() when empty), creating root if needed.
func NewDisk(root string, opts DiskOptions) (*Disk, error) {
	if root == "" {
		root = os.TempDir()
	}

	created := false
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("unable to access temp directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("temp path %s is not a directory", root)
	}

	dir := root
	if !opts.Keep {
		id := opts.RunID
		if id == uuid.Nil {
			id = uuid.New()
		}
		dir = filepath.Join(root, RunDirPrefix+id.String())
		if err := os.Mkdir(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create run directory: %w", err)
		}
	}

	d := &Disk{
		root:        root,
		dir:         dir,
		createdRoot: created,
		keep:        opts.Keep,
		changed:     make(chan struct{}),
	}

	if w, err := fsnotify.NewWatcher(); err != nil {
		slog.Debug("store: fsnotify unavailable, falling back to polling", "error", err)
	} else if err := w.Add(dir); err != nil {
		w.Close()
		slog.Debug("store: cannot watch frame directory, falling back to polling", "dir", dir, "error", err)
	} else {
		d.watcher = w
		go d.watch()
	}
	return d, nil
}

// Dir is the directory holding the frame files.
func (d *Disk) Dir() string { return d.dir }

// CreatedRoot reports whether NewDisk had to create the root directory.
func (d *Disk) CreatedRoot() bool { return d.createdRoot }

func (d *Disk) path(index int) string { return filepath.Join(d.dir, FileName(index)) }

func (d *Disk) watch() {
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(ev.Name), framePrefix) {
				d.broadcast()
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("store: watcher error", "error", err)
		}
	}
}

func (d *Disk) broadcast() {
	d.mu.Lock()
	close(d.changed)
	d.changed = make(chan struct{})
	d.mu.Unlock()
}

func (d *Disk) wake() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

func (d *Disk) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Put writes the frame to a temp file and links it into place, so the final name is created exactly once.
func (d *Disk) Put(ctx context.Context, index int, frame string) error {
	if d.isClosed() {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(d.dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("failed to store frame %d: %w", index, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(frame); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to store frame %d: %w", index, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to store frame %d: %w", index, err)
	}

	final := d.path(index)
	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		// Filesystems without hard links: rename instead, after an existence check.
		if _, statErr := os.Stat(final); statErr == nil {
			return ErrExists
		}
		if err := os.Rename(tmpName, final); err != nil {
			return fmt.Errorf("failed to store frame %d: %w", index, err)
		}
	}
	return nil
}

func (d *Disk) Get(ctx context.Context, index int) (string, error) {
	if d.isClosed() {
		return "", ErrClosed
	}
	data, err := os.ReadFile(d.path(index))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read frame %d: %w", index, err)
	}
	return string(data), nil
}

// Wait wakes on directory events, with a slow poll as a safety net for missed events.
func (d *Disk) Wait(ctx context.Context, index int) (string, error) {
	every := defaultPollInterval
	if d.watcher != nil {
		every = 250 * time.Millisecond
	}
	return pollWait(ctx, index, every, d.wake, d.Get)
}

func (d *Disk) Len(ctx context.Context) (int, error) {
	if d.isClosed() {
		return 0, ErrClosed
	}
	matches, err := filepath.Glob(filepath.Join(d.dir, framePrefix+"*"+frameSuffix))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Close stops the watcher and, unless Keep was set, removes the run directory
// and the root as well when NewDisk created it.
func (d *Disk) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.watcher != nil {
		d.watcher.Close()
	}
	d.broadcast()

	if d.keep {
		return nil
	}
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", d.dir, err)
	}
	if d.createdRoot {
		// Only succeeds when empty; anything else in there is not ours.
		_ = os.Remove(d.root)
	}
	return nil
}

// RemoveStaleRuns deletes run directories left in root by interrupted runs.
func RemoveStaleRuns(root string) (int, error) {
	if root == "" {
		root = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(root, RunDirPrefix+"*"))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := uuid.Parse(strings.TrimPrefix(filepath.Base(m), RunDirPrefix)); err != nil {
			continue
		}
		if err := os.RemoveAll(m); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", m, err)
		}
		removed++
	}
	return removed, nil
}
