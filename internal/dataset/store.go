// Package dataset serves the simulated orders, restaurants and drivers of
// the food delivery domain from a JSON file.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/watcher"
)

var log = logger.ForComponent("dataset")

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrNoPendingOrder   = errors.New("no pending order found")
)

// Store answers every lookup from the current file content. Without Watch
// the file is read on each call; with Watch the parsed snapshot is cached
// until the file changes.
type Store struct {
	path string

	mu      sync.RWMutex
	cached  *Snapshot
	caching bool
	watcher *watcher.Watcher
}

func Open(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Watch enables snapshot caching, invalidated by file change events.
func (s *Store) Watch(ctx context.Context, cfg watcher.Config) error {
	w, err := watcher.New(cfg, func(events []watcher.FileEvent) {
		log.Info("data file changed", "path", s.path, "event", events[len(events)-1].Type.String())
		s.Invalidate()
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.AddFile(s.path); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}

	s.mu.Lock()
	s.watcher = w
	s.caching = true
	s.cached = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.caching = false
	s.cached = nil
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop()
}

func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Snapshot returns the current data. A missing file reads as empty.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	if s.caching && s.cached != nil {
		snap := s.cached
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.caching {
		s.cached = snap
	}
	s.mu.Unlock()
	return snap, nil
}

func (s *Store) load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("data file not found, serving empty data", "path", s.path)
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	for id, o := range snap.Orders {
		o.ID = id
		snap.Orders[id] = o
	}
	for id, m := range snap.Restaurants {
		m.ID = id
		snap.Restaurants[id] = m
	}
	for id, d := range snap.Drivers {
		d.ID = id
		snap.Drivers[id] = d
	}
	return &snap, nil
}

// Order returns the order with its driver's current location.
func (s *Store) Order(id string) (*Order, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	o, ok := snap.Orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrOrderNotFound, id)
	}
	if d, ok := snap.Drivers[o.DriverID]; ok {
		loc := d.CurrentLocation
		o.DriverLocation = &loc
	}
	return &o, nil
}

func (s *Store) Merchant(id string) (*Merchant, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	m, ok := snap.Restaurants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMerchantNotFound, id)
	}
	return &m, nil
}

func (s *Store) Driver(id string) (*Driver, bool) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, false
	}
	d, ok := snap.Drivers[id]
	return &d, ok
}

// FindOrderInText returns the first known order ID that appears in text as
// a whole token, compared case-insensitively. "ORD1234" does not match
// ORD123.
func (s *Store) FindOrderInText(text string) (string, bool) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", false
	}

	known := make(map[string]string, len(snap.Orders))
	for id := range snap.Orders {
		known[strings.ToUpper(id)] = id
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	for _, tok := range tokens {
		if id, ok := known[strings.ToUpper(tok)]; ok {
			return id, true
		}
	}
	return "", false
}

// NearestPendingOrder scans orders awaiting pickup at merchants other than
// excludeMerchant and returns the one whose merchant is closest to the
// driver. Equal distances resolve to the smallest order ID.
func (s *Store) NearestPendingOrder(driverLocation int, excludeMerchant string) (*PendingOrder, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	var best *PendingOrder
	for _, id := range sortedKeys(snap.Orders) {
		o := snap.Orders[id]
		if o.Status != StatusAwaitingPickup || o.MerchantID == excludeMerchant {
			continue
		}
		m, ok := snap.Restaurants[o.MerchantID]
		if !ok {
			continue
		}
		d := distance(m.Location, driverLocation)
		if best == nil || d < best.Distance {
			best = &PendingOrder{OrderID: id, Merchant: m, Distance: d}
		}
	}
	if best == nil {
		return nil, ErrNoPendingOrder
	}
	return best, nil
}

// NearbyMerchants returns up to limit non-overloaded merchants ordered by
// distance from merchantID.
func (s *Store) NearbyMerchants(merchantID string, limit int) ([]Merchant, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	current, ok := snap.Restaurants[merchantID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMerchantNotFound, merchantID)
	}

	var out []Merchant
	for _, id := range sortedKeys(snap.Restaurants) {
		m := snap.Restaurants[id]
		if id == merchantID || m.Status != StatusNormal {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return distance(out[i].Location, current.Location) < distance(out[j].Location, current.Location)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
