// Package watchreg manages the watchlist seed file. The file is validated
// entry by entry, hot-reloaded on change, and feeds the portfolio watchlist
// through idempotent adds, so an edit while running is safe.
package watchreg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"clawtrader/internal/logger"
	"clawtrader/internal/types"
)

// Entry is one watchlist seed asset.
type Entry struct {
	ID     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Image  string `yaml:"image,omitempty"`
}

type fileConfig struct {
	Assets []Entry `yaml:"assets"`
}

// Snapshot is the validated entry set of one load.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Entries  []Entry
}

// ChangeListener fires after every successful reload.
type ChangeListener func(Snapshot)

const entrySchemaJSON = `{
	"type": "object",
	"required": ["id", "symbol", "name"],
	"properties": {
		"id":     {"type": "string", "minLength": 1},
		"symbol": {"type": "string", "minLength": 1},
		"name":   {"type": "string", "minLength": 1},
		"image":  {"type": "string"}
	}
}`

var entrySchema = jsonschema.MustCompileString("watchlist-entry.json", entrySchemaJSON)

// Registry watches the seed file and exposes its validated entries.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry loads path and starts watching it. A missing file is seeded
// with the default asset set first.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("watchlist registry requires path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeSeed(path); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read watchlist file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("watchlist reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current validated entry set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// AddListener registers a reload callback. The callback also fires for
// snapshots already loaded, so late subscribers never miss the initial set.
func (r *Registry) AddListener(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	snap := cloneSnapshot(r.snapshot)
	r.mu.Unlock()
	fn(snap)
}

func (r *Registry) reload() error {
	cfg, err := readWatchlistFile(r.path)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Assets))
	entries := make([]Entry, 0, len(cfg.Assets))
	for _, e := range cfg.Assets {
		e.ID = strings.TrimSpace(e.ID)
		e.Symbol = strings.ToUpper(strings.TrimSpace(e.Symbol))
		e.Name = strings.TrimSpace(e.Name)
		if err := validateEntry(e); err != nil {
			logger.Errorf("watchlist entry %q rejected: %v", e.ID, err)
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		entries = append(entries, e)
	}

	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Entries:  entries,
	}
	r.mu.Unlock()
	logger.Infof("watchlist registry loaded %d assets from %s", len(entries), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func validateEntry(e Entry) error {
	doc := map[string]any{
		"id":     e.ID,
		"symbol": e.Symbol,
		"name":   e.Name,
		"image":  e.Image,
	}
	return entrySchema.Validate(doc)
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := src
	dst.Entries = append([]Entry(nil), src.Entries...)
	return dst
}

func readWatchlistFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read watchlist file failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse watchlist file failed: %w", err)
	}
	return cfg, nil
}

// Item converts an entry to the watchlist item type. Prices start at zero and
// are filled in by the first quote refresh.
func (e Entry) Item() types.WatchlistItem {
	return types.WatchlistItem{
		ID:     e.ID,
		Symbol: e.Symbol,
		Name:   e.Name,
		Image:  e.Image,
	}
}

var defaultSeed = fileConfig{Assets: []Entry{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum"},
	{ID: "solana", Symbol: "SOL", Name: "Solana"},
	{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin"},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano"},
}}

func writeSeed(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating watchlist dir: %w", err)
		}
	}
	out, err := yaml.Marshal(defaultSeed)
	if err != nil {
		return fmt.Errorf("encoding watchlist seed: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing watchlist seed: %w", err)
	}
	return nil
}
