// Package library holds the in-memory snapshot of Upstream items, keyed by
// id, with secondary indexes rebuilt on each sync. Rebuilds are atomic:
// the writer swaps in a new immutable snapshot pointer, so readers never
// observe a partially built index (spec.md §5).
package library

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/cablecast/cablecast/internal/model"
)

// snapshot is the immutable data swapped in atomically on each sync.
type snapshot struct {
	byID map[string]model.LibraryItem
}

// Index is the LibraryIndex component.
type Index struct {
	ptr atomic.Pointer[snapshot]
}

// New returns an empty Index.
func New() *Index {
	idx := &Index{}
	idx.ptr.Store(&snapshot{byID: map[string]model.LibraryItem{}})
	return idx
}

// Replace atomically swaps in a freshly built snapshot from items.
func (idx *Index) Replace(items []model.LibraryItem) {
	m := make(map[string]model.LibraryItem, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	idx.ptr.Store(&snapshot{byID: m})
}

// Get returns the item for id and whether it was found. Unknown ids are a
// normal outcome (weak references per spec.md §9), not an error.
func (idx *Index) Get(id string) (model.LibraryItem, bool) {
	s := idx.ptr.Load()
	it, ok := s.byID[id]
	return it, ok
}

// Resolve filters ids down to those present in the current snapshot,
// silently skipping stale ones.
func (idx *Index) Resolve(ids []string) []model.LibraryItem {
	s := idx.ptr.Load()
	out := make([]model.LibraryItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// All returns every item in the current snapshot.
func (idx *Index) All() []model.LibraryItem {
	s := idx.ptr.Load()
	out := make([]model.LibraryItem, 0, len(s.byID))
	for _, it := range s.byID {
		out = append(out, it)
	}
	return out
}

// Len reports how many items are in the current snapshot.
func (idx *Index) Len() int {
	return len(idx.ptr.Load().byID)
}

// GetItemDurationMs returns ticksToMs-normalized duration, defaulting to 0
// (which causes the scheduler to skip the item) when absent.
func GetItemDurationMs(it model.LibraryItem) int64 {
	if it.DurationMs <= 0 {
		return 0
	}
	return it.DurationMs
}

// GenreBucket pairs a lead genre with its items, for Genres() ordering.
type GenreBucket struct {
	Genre string
	Items []model.LibraryItem
}

// Genres groups items by their lead (first) genre only, to prevent
// cross-contamination across genre channels (spec.md §4.3).
func (idx *Index) Genres() []GenreBucket {
	byGenre := map[string][]model.LibraryItem{}
	for _, it := range idx.All() {
		g := it.LeadGenre()
		if g == "" {
			continue
		}
		byGenre[g] = append(byGenre[g], it)
	}
	out := make([]GenreBucket, 0, len(byGenre))
	for g, items := range byGenre {
		out = append(out, GenreBucket{Genre: g, Items: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Items) != len(out[j].Items) {
			return len(out[i].Items) > len(out[j].Items)
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}

// ItemsWithGenre returns every item whose Genres contains any of
// canonical/aliases (case-insensitive substring), used by preset filters —
// unlike Genres() this considers every genre on the item, not just lead.
func (idx *Index) ItemsWithGenre(canonical string, aliases []string) []model.LibraryItem {
	names := append([]string{canonical}, aliases...)
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	var out []model.LibraryItem
	for _, it := range idx.All() {
		for _, g := range it.Genres {
			gl := strings.ToLower(g)
			for _, n := range lowered {
				if strings.Contains(gl, n) {
					out = append(out, it)
					goto next
				}
			}
		}
	next:
	}
	return out
}

// PersonBucket pairs a person name with the items crediting them in role.
type PersonBucket struct {
	Name  string
	Items []model.LibraryItem
}

// PeopleIndex scans People filtered by role and groups items by name.
// For role=actor, only the top-3 billed credits on each item count,
// matching the "top-3 billed actors per item only" rule in spec.md §4.4.
func (idx *Index) PeopleIndex(role model.PersonRole) []PersonBucket {
	byName := map[string][]model.LibraryItem{}
	for _, it := range idx.All() {
		seen := map[string]bool{}
		billed := 0
		for _, p := range it.People {
			if p.Role != role {
				continue
			}
			if role == model.RoleActor {
				billed++
				if billed > 3 {
					continue
				}
			}
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			byName[p.Name] = append(byName[p.Name], it)
		}
	}
	out := make([]PersonBucket, 0, len(byName))
	for n, items := range byName {
		out = append(out, PersonBucket{Name: n, Items: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Items) != len(out[j].Items) {
			return len(out[i].Items) > len(out[j].Items)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StudioBucket pairs a studio name with its items.
type StudioBucket struct {
	Name  string
	Items []model.LibraryItem
}

func (idx *Index) Studios() []StudioBucket {
	byName := map[string][]model.LibraryItem{}
	for _, it := range idx.All() {
		for _, s := range it.Studios {
			byName[s] = append(byName[s], it)
		}
	}
	out := make([]StudioBucket, 0, len(byName))
	for n, items := range byName {
		out = append(out, StudioBucket{Name: n, Items: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Items) != len(out[j].Items) {
			return len(out[i].Items) > len(out[j].Items)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DecadeBucket pairs a decade (e.g. 1990) with its items.
type DecadeBucket struct {
	Decade int
	Items  []model.LibraryItem
}

func (idx *Index) Decades() []DecadeBucket {
	byDecade := map[int][]model.LibraryItem{}
	for _, it := range idx.All() {
		if it.ProductionYear <= 0 {
			continue
		}
		d := (it.ProductionYear / 10) * 10
		byDecade[d] = append(byDecade[d], it)
	}
	out := make([]DecadeBucket, 0, len(byDecade))
	for d, items := range byDecade {
		out = append(out, DecadeBucket{Decade: d, Items: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Items) != len(out[j].Items) {
			return len(out[i].Items) > len(out[j].Items)
		}
		return out[i].Decade < out[j].Decade
	})
	return out
}

// CollectionBucket pairs a collection id with its member items.
type CollectionBucket struct {
	ID    string
	Items []model.LibraryItem
}

func (idx *Index) Collections() []CollectionBucket {
	byID := map[string][]model.LibraryItem{}
	for _, it := range idx.All() {
		for _, c := range it.CollectionIDs {
			byID[c] = append(byID[c], it)
		}
	}
	out := make([]CollectionBucket, 0, len(byID))
	for id, items := range byID {
		out = append(out, CollectionBucket{ID: id, Items: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlaylistBucket pairs a playlist id with its member items.
type PlaylistBucket struct {
	ID    string
	Items []model.LibraryItem
}

func (idx *Index) Playlists() []PlaylistBucket {
	byID := map[string][]model.LibraryItem{}
	for _, it := range idx.All() {
		for _, p := range it.PlaylistIDs {
			byID[p] = append(byID[p], it)
		}
	}
	out := make([]PlaylistBucket, 0, len(byID))
	for id, items := range byID {
		out = append(out, PlaylistBucket{ID: id, Items: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TotalDurationMs sums GetItemDurationMs across items.
func TotalDurationMs(items []model.LibraryItem) int64 {
	var total int64
	for _, it := range items {
		total += GetItemDurationMs(it)
	}
	return total
}
