package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/decred/slog"
)

// ErrReadOnly is returned by writes against a manager without a root directory.
var ErrReadOnly = errors.New("filesystem is read-only")

// Manager resolves asset paths. Files are looked up in mounted overlays
// first, newest mount wins, then in the root directory.
type Manager struct {
	rootDir  string
	root     fs.FS
	overlays []fs.FS
	log      slog.Logger
}

// NewManager creates a new filesystem manager rooted at rootDir
func NewManager(rootDir string, log slog.Logger) *Manager {
	if log == nil {
		log = slog.Disabled
	}
	return &Manager{
		rootDir: rootDir,
		root:    os.DirFS(rootDir),
		log:     log,
	}
}

// NewManagerFS creates a read-only manager over fsys.
func NewManagerFS(fsys fs.FS, log slog.Logger) *Manager {
	if log == nil {
		log = slog.Disabled
	}
	return &Manager{root: fsys, log: log}
}

// Init initializes the filesystem
func (m *Manager) Init() error {
	if m.rootDir == "" {
		return nil
	}
	info, err := os.Stat(m.rootDir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("root directory does not exist: %s", m.rootDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("root is not a directory: %s", m.rootDir)
	}

	m.log.Infof("Filesystem initialized with root: %s", m.rootDir)
	return nil
}

// Mount adds an overlay searched before the root, e.g. a mod directory.
func (m *Manager) Mount(name string, fsys fs.FS) {
	m.overlays = append(m.overlays, fsys)
	m.log.Infof("Mounted overlay: %s", name)
}

// Open opens a file, checking overlays first, then the root
func (m *Manager) Open(filename string) (io.ReadCloser, error) {
	name := cleanPath(filename)
	for i := len(m.overlays) - 1; i >= 0; i-- {
		if f, err := m.overlays[i].Open(name); err == nil {
			return f, nil
		}
	}

	f, err := m.root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s: %w", filename, fs.ErrNotExist)
	}
	return f, nil
}

// Exists checks if a file exists in overlays or root
func (m *Manager) Exists(filename string) bool {
	name := cleanPath(filename)
	for _, o := range m.overlays {
		if _, err := fs.Stat(o, name); err == nil {
			return true
		}
	}
	_, err := fs.Stat(m.root, name)
	return err == nil
}

// ReadFile reads an entire file into memory
func (m *Manager) ReadFile(filename string) ([]byte, error) {
	file, err := m.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// WriteFile writes data under the root directory, creating parents.
func (m *Manager) WriteFile(filename string, data []byte) error {
	if m.rootDir == "" {
		return ErrReadOnly
	}
	full := filepath.Join(m.rootDir, filepath.FromSlash(cleanPath(filename)))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}

// ListDirectory lists files in a directory across overlays and root.
func (m *Manager) ListDirectory(dirPath string) ([]string, error) {
	name := cleanPath(dirPath)
	seen := make(map[string]bool)
	var files []string
	var found bool

	for _, fsys := range append([]fs.FS{m.root}, m.overlays...) {
		entries, err := fs.ReadDir(fsys, name)
		if err != nil {
			continue
		}
		found = true
		for _, entry := range entries {
			if !seen[entry.Name()] {
				seen[entry.Name()] = true
				files = append(files, entry.Name())
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("directory not found: %s: %w", dirPath, fs.ErrNotExist)
	}

	sort.Strings(files)
	return files, nil
}

// GetRootDir returns the root directory
func (m *Manager) GetRootDir() string {
	return m.rootDir
}

// Close drops all overlays
func (m *Manager) Close() error {
	m.overlays = nil
	m.log.Debugf("Filesystem manager closed")
	return nil
}

// cleanPath turns game-style paths into fs.FS names.
func cleanPath(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return "."
	}
	return name
}
