package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/patrickmn/go-cache"

	"tryon-canvas-server/modules/common/apperror"
)

// fixture 캐시 TTL
const (
	cacheTTL     = 30 * time.Minute
	cacheCleanup = time.Hour
)

var typePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Loader - REFERENCE_DATA_DIR 의 JSON fixture 로더
type Loader struct {
	dir   string
	cache *cache.Cache
}

// NewLoader - 로더 생성
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// Locations - locations/<type>.json
func (l *Loader) Locations(locationType string) ([]json.RawMessage, error) {
	if !typePattern.MatchString(locationType) {
		return nil, apperror.Validation("Invalid location type: " + locationType)
	}
	return l.load(filepath.Join("locations", locationType+".json"))
}

// Poses - poses.json
func (l *Loader) Poses() ([]json.RawMessage, error) {
	return l.load("poses.json")
}

func (l *Loader) load(name string) ([]json.RawMessage, error) {
	if cached, ok := l.cache.Get(name); ok {
		return cached.([]json.RawMessage), nil
	}

	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperror.New(apperror.ErrNotFound, "Reference data not found: "+name)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	items, err := parseItems(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	l.cache.Set(name, items, cache.DefaultExpiration)
	log.Printf("📂 [Reference] Loaded %s (%d items)", name, len(items))
	return items, nil
}

// parseItems - 배열 또는 {"items": [...]} / {"data": [...]}
func parseItems(data []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Items []json.RawMessage `json:"items"`
		Data  []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return []json.RawMessage{}, nil
}

// Paginate - 1 부터 시작하는 page 슬라이스
func Paginate(items []json.RawMessage, page, limit int) []json.RawMessage {
	from := (page - 1) * limit
	if from >= len(items) || from < 0 {
		return []json.RawMessage{}
	}
	to := from + limit
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}
