// Package materializer turns preset ids and global filter settings into a
// concrete, persistable list of Channel definitions (spec.md §4.4).
package materializer

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/model"
)

// foldName NFC-normalizes and lowercases a name so curated-list matching is
// stable across accented variants of the same person's name.
func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

const (
	fourHourMs = 4 * 3_600_000
	twoHourMs  = 2 * 3_600_000
)

// PresetKind distinguishes a hand-authored static preset from a dynamic
// source that enumerates one channel per entity (genre, decade, person, ...).
type PresetKind string

const (
	PresetStatic      PresetKind = "static"
	PresetGenres      PresetKind = "genres"
	PresetEras        PresetKind = "eras"
	PresetDirectors   PresetKind = "directors"
	PresetActors      PresetKind = "actors"
	PresetComposers   PresetKind = "composers"
	PresetStudios     PresetKind = "studios"
	PresetCollections PresetKind = "collections"
	PresetPlaylists   PresetKind = "playlists"
)

// PresetDef describes one selectable preset. Filter is only meaningful for
// PresetStatic; dynamic presets derive their own per-entity filters.
type PresetDef struct {
	ID     string
	Kind   PresetKind
	Name   string
	Filter *model.ChannelFilter
}

// NamedGroup is a pre-fetched collection or playlist: a name plus its full
// member items, as returned by UpstreamClient.GetCollections/GetPlaylists.
type NamedGroup struct {
	ID    string
	Name  string
	Items []model.LibraryItem
}

// candidate is one channel's worth of materialized content, prior to
// multiplicity expansion and name de-duplication.
type candidate struct {
	Name   string
	Filter *model.ChannelFilter
	Items  []model.LibraryItem
}

// Request bundles the inputs to Materialize.
type Request struct {
	PresetIDs     []string // may contain repeats, each repeat is one extra back-to-back copy
	Presets       map[string]PresetDef
	Global        GlobalFilters
	Collections   []NamedGroup
	Playlists     []NamedGroup
	ExistingNames map[string]struct{} // seeds name de-duplication; typically custom channel names
	GeneratedKind model.ChannelKind   // model.ChannelPreset normally, model.ChannelAuto for bootstrap defaults
}

// Materialize runs the full ChannelMaterializer algorithm against idx and
// returns the concrete channel list to persist (caller is responsible for
// deleting existing auto/preset channels first, per step 1 of the algorithm).
func Materialize(idx *library.Index, req Request) []model.Channel {
	names := make(map[string]struct{}, len(req.ExistingNames))
	for n := range req.ExistingNames {
		names[n] = struct{}{}
	}

	kind := req.GeneratedKind
	if kind == "" {
		kind = model.ChannelPreset
	}

	var order []string
	multiplicity := map[string]int{}
	for _, id := range req.PresetIDs {
		if multiplicity[id] == 0 {
			order = append(order, id)
		}
		multiplicity[id]++
	}

	var out []model.Channel
	sortOrder := 0
	for _, id := range order {
		def, ok := req.Presets[id]
		if !ok {
			continue
		}
		base := buildCandidates(def, idx, req)
		n := multiplicity[id]
		for _, c := range base {
			for copyIdx := 1; copyIdx <= n; copyIdx++ {
				name := c.Name
				if copyIdx > 1 {
					name = fmt.Sprintf("%s %d", c.Name, copyIdx)
				}
				name = uniquify(name, names)
				names[name] = struct{}{}
				sortOrder++

				itemIDs := make([]string, len(c.Items))
				for i, it := range c.Items {
					itemIDs[i] = it.ID
				}

				out = append(out, model.Channel{
					Name:      name,
					Kind:      kind,
					PresetID:  def.ID,
					Filter:    c.Filter,
					ItemIDs:   itemIDs,
					SortOrder: sortOrder,
				})
			}
		}
	}
	return out
}

func buildCandidates(def PresetDef, idx *library.Index, req Request) []candidate {
	switch def.Kind {
	case PresetStatic:
		return buildStatic(def, idx, req.Global)
	case PresetGenres:
		return buildGenres(idx, req.Global)
	case PresetEras:
		return buildEras(idx, req.Global)
	case PresetDirectors:
		return buildPeople(idx, model.RoleDirector, 2, twoHourMs, curatedDirectors, req.Global)
	case PresetActors:
		return buildPeople(idx, model.RoleActor, 5, twoHourMs, curatedActors, req.Global)
	case PresetComposers:
		return buildPeople(idx, model.RoleComposer, 3, twoHourMs, curatedComposers, req.Global)
	case PresetStudios:
		return buildStudios(idx, req.Global)
	case PresetCollections:
		return buildGroups(req.Collections, fourHourMs, req.Global)
	case PresetPlaylists:
		return buildGroups(req.Playlists, 0, req.Global)
	default:
		return nil
	}
}

func buildStatic(def PresetDef, idx *library.Index, global GlobalFilters) []candidate {
	items := selectItems(idx.All(), def.Filter, global)

	splitEligible := global.SeparateContentTypes && global.AllowMovies && global.AllowEpisodes &&
		def.Filter != nil && def.Filter.AllowMovies && def.Filter.AllowEpisodes
	if !splitEligible {
		if library.TotalDurationMs(items) < fourHourMs {
			return nil
		}
		return []candidate{{Name: def.Name, Filter: def.Filter, Items: items}}
	}

	var out []candidate
	movies := filterByKind(items, model.KindMovie)
	if library.TotalDurationMs(movies) >= fourHourMs {
		out = append(out, candidate{Name: def.Name + " Movies", Filter: def.Filter, Items: movies})
	}
	tv := filterByKind(items, model.KindEpisode)
	if library.TotalDurationMs(tv) >= fourHourMs {
		out = append(out, candidate{Name: def.Name + " TV", Filter: def.Filter, Items: tv})
	}
	return out
}

func buildGenres(idx *library.Index, global GlobalFilters) []candidate {
	var out []candidate
	for _, bucket := range idx.Genres() {
		items := filterGlobalOnly(bucket.Items, global)
		if library.TotalDurationMs(items) < fourHourMs {
			continue
		}
		out = append(out, candidate{Name: bucket.Genre, Items: items})
	}
	return out
}

func buildEras(idx *library.Index, global GlobalFilters) []candidate {
	var out []candidate
	for _, bucket := range idx.Decades() {
		if len(bucket.Items) < 10 {
			continue
		}
		items := filterGlobalOnly(bucket.Items, global)
		if library.TotalDurationMs(items) < fourHourMs {
			continue
		}
		out = append(out, candidate{Name: fmt.Sprintf("%ds Channel", bucket.Decade%100), Items: items})
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Items) > len(out[j].Items) })
	return out
}

func buildStudios(idx *library.Index, global GlobalFilters) []candidate {
	var eligible []library.StudioBucket
	for _, bucket := range idx.Studios() {
		if len(bucket.Items) < 5 {
			continue
		}
		eligible = append(eligible, bucket)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return len(eligible[i].Items) > len(eligible[j].Items) })
	if len(eligible) > 10 {
		eligible = eligible[:10]
	}
	var out []candidate
	for _, bucket := range eligible {
		items := filterGlobalOnly(bucket.Items, global)
		if library.TotalDurationMs(items) < fourHourMs {
			continue
		}
		out = append(out, candidate{Name: bucket.Name, Items: items})
	}
	return out
}

func buildPeople(idx *library.Index, role model.PersonRole, minItems int, durationThreshold int64, curated []string, global GlobalFilters) []candidate {
	buckets := idx.PeopleIndex(role)
	byName := make(map[string]library.PersonBucket, len(buckets))
	var eligible []library.PersonBucket
	for _, b := range buckets {
		if len(b.Items) < minItems {
			continue
		}
		byName[strings.ToLower(b.Name)] = b
		eligible = append(eligible, b)
	}

	ranked := priorityFirstRank(eligible, curated)
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	var out []candidate
	for _, b := range ranked {
		items := filterGlobalOnly(b.Items, global)
		if library.TotalDurationMs(items) < durationThreshold {
			continue
		}
		out = append(out, candidate{Name: b.Name, Items: items})
	}
	return out
}

// priorityFirstRank scans curated in order, emitting eligible entries
// present in the library first (in curated's order), then appends the
// remaining eligible entries sorted by descending item count (spec.md §4.4).
func priorityFirstRank(eligible []library.PersonBucket, curated []string) []library.PersonBucket {
	byLower := make(map[string]library.PersonBucket, len(eligible))
	used := make(map[string]bool, len(eligible))
	for _, b := range eligible {
		byLower[foldName(b.Name)] = b
	}

	var ranked []library.PersonBucket
	for _, name := range curated {
		key := foldName(name)
		if b, ok := byLower[key]; ok && !used[key] {
			ranked = append(ranked, b)
			used[key] = true
		}
	}

	var remainder []library.PersonBucket
	for _, b := range eligible {
		if !used[foldName(b.Name)] {
			remainder = append(remainder, b)
		}
	}
	sort.SliceStable(remainder, func(i, j int) bool { return len(remainder[i].Items) > len(remainder[j].Items) })

	return append(ranked, remainder...)
}

func buildGroups(groups []NamedGroup, durationThreshold int64, global GlobalFilters) []candidate {
	var out []candidate
	for _, g := range groups {
		items := filterGlobalOnly(g.Items, global)
		if durationThreshold > 0 && library.TotalDurationMs(items) < durationThreshold {
			continue
		}
		out = append(out, candidate{Name: g.Name, Items: items})
	}
	return out
}

func selectItems(items []model.LibraryItem, f *model.ChannelFilter, global GlobalFilters) []model.LibraryItem {
	out := make([]model.LibraryItem, 0, len(items))
	for _, it := range items {
		if !matchesGlobal(it, global) {
			continue
		}
		if !matchesFilter(it, f) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func filterGlobalOnly(items []model.LibraryItem, global GlobalFilters) []model.LibraryItem {
	out := make([]model.LibraryItem, 0, len(items))
	for _, it := range items {
		if matchesGlobal(it, global) {
			out = append(out, it)
		}
	}
	return out
}

func filterByKind(items []model.LibraryItem, kind model.ItemKind) []model.LibraryItem {
	out := make([]model.LibraryItem, 0, len(items))
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// uniquify suffixes name with " (2)", " (3)", ... until it is absent from
// taken (spec.md §4.4 step 3).
func uniquify(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
