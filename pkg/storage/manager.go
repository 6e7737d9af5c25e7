package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	framePrefix = "img-"
	frameExt    = ".jpg"
)

// Frame is one image written to the working directory
type Frame struct {
	Index int
	Path  string
}

// FrameName returns the file name used for the frame with the given index
func FrameName(index int) string {
	return fmt.Sprintf("%s%03d%s", framePrefix, index, frameExt)
}

// Manager owns the transient working directory that holds downloaded frames
type Manager struct {
	dir    string
	frames map[int]string
	mu     sync.RWMutex
}

// NewManager creates the working directory if needed and indexes any frames
// already in it
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	m := &Manager{
		dir:    dir,
		frames: make(map[int]string),
	}

	if err := m.scanExistingFrames(); err != nil {
		return nil, fmt.Errorf("failed to scan working directory: %w", err)
	}

	return m, nil
}

// Dir returns the working directory path
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) scanExistingFrames() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if index, ok := parseFrameName(entry.Name()); ok {
			m.frames[index] = filepath.Join(m.dir, entry.Name())
		}
	}

	return nil
}

func parseFrameName(name string) (int, bool) {
	if !strings.HasPrefix(name, framePrefix) || !strings.HasSuffix(name, frameExt) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, framePrefix), frameExt)
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Reset deletes the frames and any half-written frame temp files so the
// next run starts without stale images. Other files and subdirectories in
// the working directory are left alone.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isFrameFile(entry.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear working directory: %w", err)
		}
	}
	m.frames = make(map[int]string)
	return nil
}

// isFrameFile matches img-NNN.jpg and its img-NNN.jpg.tmp partial
func isFrameFile(name string) bool {
	_, ok := parseFrameName(strings.TrimSuffix(name, ".tmp"))
	return ok
}

// SaveFrame writes r to img-<index>.jpg. The data goes to a temporary file
// first and is renamed into place once fully written.
func (m *Manager) SaveFrame(r io.Reader, index int) (Frame, error) {
	filename := filepath.Join(m.dir, FrameName(index))

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return Frame{}, fmt.Errorf("failed to save frame data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return Frame{}, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return Frame{}, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.frames[index] = filename
	m.mu.Unlock()

	return Frame{Index: index, Path: filename}, nil
}

// Frames returns the frames currently in the directory ordered by index
func (m *Manager) Frames() []Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frames := make([]Frame, 0, len(m.frames))
	for index, path := range m.frames {
		frames = append(frames, Frame{Index: index, Path: path})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Index < frames[j].Index })
	return frames
}

// Count returns the number of frames in the directory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frames)
}

// Paths returns the paths of frames in index order
func Paths(frames []Frame) []string {
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.Path
	}
	return paths
}
