package mixer

import (
	"fmt"
	"path"
	"time"

	"github.com/decred/slog"
	"github.com/patrickmn/go-cache"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/filesystem"
)

const (
	cacheExpiration = 10 * time.Minute
	cacheCleanup    = 5 * time.Minute
)

// Loader decodes audio files from the asset filesystem and keeps the
// decoded sounds in an expiring cache. Channels hold their own reference,
// so expiry only affects the next Load.
type Loader struct {
	fs         *filesystem.Manager
	sampleRate int
	cache      *cache.Cache
	log        slog.Logger
}

// NewLoader creates a loader decoding at sampleRate.
func NewLoader(fs *filesystem.Manager, sampleRate int, log slog.Logger) *Loader {
	if log == nil {
		log = slog.Disabled
	}
	l := &Loader{
		fs:         fs,
		sampleRate: sampleRate,
		cache:      cache.New(cacheExpiration, cacheCleanup),
		log:        log,
	}
	l.cache.OnEvicted(func(key string, _ interface{}) {
		l.log.Tracef("Evicted decoded sound %s", key)
	})
	return l
}

// Load returns the decoded sound for an asset path.
func (l *Loader) Load(filename string) (audio.Sound, error) {
	return l.LoadSound(filename)
}

// LoadSound is Load returning the concrete type.
func (l *Loader) LoadSound(filename string) (*Sound, error) {
	if filename == "" {
		return nil, fmt.Errorf("audio path cannot be empty")
	}
	if v, ok := l.cache.Get(filename); ok {
		return v.(*Sound), nil
	}

	if _, err := FormatOf(filename); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	data, err := l.fs.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}

	pcm, err := Decode(filename, data, l.sampleRate)
	if err != nil {
		return nil, err
	}

	s := NewSound(path.Base(filename), pcm, l.sampleRate)
	l.cache.SetDefault(filename, s)
	l.log.Debugf("Loaded %s (%v, %d bytes)", filename, s.Duration(), s.Size())
	return s, nil
}

// Preload decodes every supported file in dir and reports failures per file.
func (l *Loader) Preload(dir string) []audio.Outcome {
	files, err := l.fs.ListDirectory(dir)
	if err != nil {
		return []audio.Outcome{{Item: dir, Err: err}}
	}

	var outcomes []audio.Outcome
	for _, name := range files {
		if _, err := FormatOf(name); err != nil {
			continue
		}
		p := path.Join(dir, name)
		_, err := l.LoadSound(p)
		if err != nil {
			l.log.Warnf("Failed to preload %s: %v", p, err)
		}
		outcomes = append(outcomes, audio.Outcome{Item: p, Err: err})
	}
	return outcomes
}

// Cached returns the number of decoded sounds held.
func (l *Loader) Cached() int {
	return l.cache.ItemCount()
}

// MemoryUsage returns the PCM bytes held by the cache.
func (l *Loader) MemoryUsage() int {
	var total int
	for _, item := range l.cache.Items() {
		if s, ok := item.Object.(*Sound); ok {
			total += s.Size()
		}
	}
	return total
}

// Flush drops every cached sound.
func (l *Loader) Flush() {
	l.cache.Flush()
}
