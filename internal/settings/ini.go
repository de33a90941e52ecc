package settings

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/decred/slog"

	"cyclone-engine/internal/audio"
	"cyclone-engine/internal/filesystem"
)

const volumeKeyPrefix = "volume."

// INIManager handles the player preference file. Lines look like
// [key]="value" or [key]=value; ';' and '#' start comments.
type INIManager struct {
	settings map[string]string
	fs       *filesystem.Manager
	log      slog.Logger
}

// NewINIManager creates a new INI-based settings manager
func NewINIManager(fs *filesystem.Manager, log slog.Logger) *INIManager {
	if log == nil {
		log = slog.Disabled
	}
	return &INIManager{
		settings: make(map[string]string),
		fs:       fs,
		log:      log,
	}
}

// Load loads an INI file and merges it with existing settings
func (m *INIManager) Load(filename string) error {
	m.log.Debugf("Loading INI file: %s", filename)

	reader, err := m.fs.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open INI file %s: %w", filename, err)
	}
	defer reader.Close()

	return m.parseINI(reader)
}

// Save writes every setting back, sorted by key.
func (m *INIManager) Save(filename string) error {
	keys := make([]string, 0, len(m.settings))
	for k := range m.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s]=%s\n", k, m.settings[k])
	}
	if err := m.fs.WriteFile(filename, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to write INI file %s: %w", filename, err)
	}
	return nil
}

// GetString returns a string value
func (m *INIManager) GetString(key string) string {
	if value, exists := m.settings[key]; exists {
		return strings.Trim(value, `"`)
	}
	return ""
}

// GetFloat returns a float value and whether it was present and valid.
func (m *INIManager) GetFloat(key string) (float64, bool) {
	value := m.GetString(key)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetFloat sets a float value
func (m *INIManager) SetFloat(key string, value float64) {
	m.settings[key] = strconv.FormatFloat(value, 'f', -1, 64)
	m.log.Tracef("Settings: set %s = %v", key, value)
}

// Volumes returns the stored per-category volumes. Unknown categories and
// malformed values are skipped.
func (m *INIManager) Volumes() map[audio.Category]float64 {
	volumes := make(map[audio.Category]float64)
	for key := range m.settings {
		name, ok := strings.CutPrefix(key, volumeKeyPrefix)
		if !ok {
			continue
		}
		category, err := audio.ParseCategory(name)
		if err != nil {
			m.log.Warnf("Ignoring volume for unknown category %q", name)
			continue
		}
		v, ok := m.GetFloat(key)
		if !ok {
			m.log.Warnf("Ignoring malformed volume %s=%q", key, m.settings[key])
			continue
		}
		volumes[category] = audio.ClampVolume(v)
	}
	return volumes
}

// SetVolume records the volume of a category.
func (m *INIManager) SetVolume(category audio.Category, v float64) {
	m.SetFloat(volumeKeyPrefix+strings.ToLower(category.String()), v)
}

// parseINI parses an INI file from a reader
func (m *INIManager) parseINI(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if err := m.parseLine(line); err != nil {
			m.log.Warnf("Failed to parse line '%s': %v", line, err)
			continue
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading INI file: %w", err)
	}

	return nil
}

// parseLine parses a single INI line: [key]="value"
func (m *INIManager) parseLine(line string) error {
	if !strings.HasPrefix(line, "[") {
		return fmt.Errorf("line does not start with [")
	}

	closeBracketPos := strings.Index(line, "]")
	if closeBracketPos == -1 {
		return fmt.Errorf("missing closing bracket ]")
	}

	key := strings.TrimSpace(line[1:closeBracketPos])
	if key == "" {
		return fmt.Errorf("empty key")
	}

	remaining := line[closeBracketPos+1:]
	if !strings.HasPrefix(remaining, "=") {
		return fmt.Errorf("missing = after key")
	}

	value := strings.TrimSpace(remaining[1:])
	if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
		value = value[1 : len(value)-1]
	}

	m.settings[strings.ToLower(key)] = value
	return nil
}

// GetAllSettings returns all current settings for debugging
func (m *INIManager) GetAllSettings() map[string]string {
	result := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		result[k] = v
	}
	return result
}
