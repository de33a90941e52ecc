package graphics

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"path"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// FileReader reads asset files.
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// TextureCache manages texture loading and caching
type TextureCache struct {
	files FileReader
	cache map[string]*ebiten.Image
	mutex sync.RWMutex
}

// NewTextureCache creates a new texture cache
func NewTextureCache(files FileReader) *TextureCache {
	return &TextureCache{
		files: files,
		cache: make(map[string]*ebiten.Image),
	}
}

// textureName normalizes a texture path; ".png" is assumed without an
// extension.
func textureName(filename string) string {
	name := strings.ToLower(strings.ReplaceAll(filename, "\\", "/"))
	if path.Ext(name) == "" {
		name += ".png"
	}
	return name
}

// LoadTexture loads a texture from file or cache
func (tc *TextureCache) LoadTexture(filename string) (*ebiten.Image, error) {
	name := textureName(filename)

	tc.mutex.RLock()
	if cached, exists := tc.cache[name]; exists {
		tc.mutex.RUnlock()
		return cached, nil
	}
	tc.mutex.RUnlock()

	img, err := tc.decode(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load texture %s: %w", name, err)
	}
	texture := ebiten.NewImageFromImage(img)

	tc.mutex.Lock()
	tc.cache[name] = texture
	tc.mutex.Unlock()
	return texture, nil
}

func (tc *TextureCache) decode(name string) (image.Image, error) {
	if tc.files == nil {
		return nil, fmt.Errorf("no asset filesystem")
	}
	data, err := tc.files.ReadFile(name)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}
	return img, nil
}

// ClearCache removes all cached textures
func (tc *TextureCache) ClearCache() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	for name, texture := range tc.cache {
		texture.Deallocate()
		delete(tc.cache, name)
	}
}

// CacheSize returns the number of cached textures
func (tc *TextureCache) CacheSize() int {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return len(tc.cache)
}
