package materializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cablecast/cablecast/internal/library"
	"github.com/cablecast/cablecast/internal/model"
)

func longMovie(id, genre string, year int) model.LibraryItem {
	return model.LibraryItem{
		ID: id, Kind: model.KindMovie, Genres: []string{genre},
		DurationMs: 2 * 3_600_000, ProductionYear: year,
	}
}

func defaultGlobal() GlobalFilters {
	return GlobalFilters{AllowMovies: true, AllowEpisodes: true}
}

func TestMaterializeStaticRejectedBelowFourHours(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{longMovie("m1", "Action", 2000)})

	presets := map[string]PresetDef{
		"action": {ID: "action", Kind: PresetStatic, Name: "Action", Filter: &model.ChannelFilter{
			AllowMovies: true, AllowEpisodes: true, AllowedGenres: []string{"Action"},
		}},
	}

	channels := Materialize(idx, Request{
		PresetIDs: []string{"action"},
		Presets:   presets,
		Global:    defaultGlobal(),
	})
	assert.Empty(t, channels, "single 2h movie is below the 4h threshold")
}

func TestMaterializeStaticAccepted(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{
		longMovie("m1", "Action", 2000),
		longMovie("m2", "Action", 2001),
		longMovie("m3", "Action", 2002),
	})

	presets := map[string]PresetDef{
		"action": {ID: "action", Kind: PresetStatic, Name: "Action", Filter: &model.ChannelFilter{
			AllowMovies: true, AllowEpisodes: true, AllowedGenres: []string{"Action"},
		}},
	}

	channels := Materialize(idx, Request{
		PresetIDs: []string{"action"},
		Presets:   presets,
		Global:    defaultGlobal(),
	})
	require.Len(t, channels, 1)
	assert.Equal(t, "Action", channels[0].Name)
	assert.Len(t, channels[0].ItemIDs, 3)
	assert.Equal(t, model.ChannelPreset, channels[0].Kind)
}

func TestMaterializeStaticSeparateContentTypesSplits(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{
		longMovie("m1", "Action", 2000),
		longMovie("m2", "Action", 2001),
		longMovie("m3", "Action", 2002),
		{ID: "e1", Kind: model.KindEpisode, Genres: []string{"Action"}, SeriesID: "s1", DurationMs: 2 * 3_600_000},
	})

	presets := map[string]PresetDef{
		"action": {ID: "action", Kind: PresetStatic, Name: "Action", Filter: &model.ChannelFilter{
			AllowMovies: true, AllowEpisodes: true, AllowedGenres: []string{"Action"},
		}},
	}

	global := defaultGlobal()
	global.SeparateContentTypes = true

	channels := Materialize(idx, Request{
		PresetIDs: []string{"action"},
		Presets:   presets,
		Global:    global,
	})
	require.Len(t, channels, 1, "only the Movies half clears its own 4h threshold; TV half (one 2h episode) does not")
	assert.Equal(t, "Action Movies", channels[0].Name)
}

func TestMaterializeMultiplicityAppendsBackToBackCopies(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{
		longMovie("m1", "Action", 2000),
		longMovie("m2", "Action", 2001),
		longMovie("m3", "Action", 2002),
	})

	presets := map[string]PresetDef{
		"action": {ID: "action", Kind: PresetStatic, Name: "Action", Filter: &model.ChannelFilter{
			AllowMovies: true, AllowEpisodes: true, AllowedGenres: []string{"Action"},
		}},
	}

	channels := Materialize(idx, Request{
		PresetIDs: []string{"action", "action"},
		Presets:   presets,
		Global:    defaultGlobal(),
	})
	require.Len(t, channels, 2)
	assert.Equal(t, "Action", channels[0].Name)
	assert.Equal(t, "Action 2", channels[1].Name)
}

func TestMaterializeNameCollisionAgainstExistingSuffixes(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{
		longMovie("m1", "Action", 2000),
		longMovie("m2", "Action", 2001),
		longMovie("m3", "Action", 2002),
	})

	presets := map[string]PresetDef{
		"action": {ID: "action", Kind: PresetStatic, Name: "Action", Filter: &model.ChannelFilter{
			AllowMovies: true, AllowEpisodes: true, AllowedGenres: []string{"Action"},
		}},
	}

	channels := Materialize(idx, Request{
		PresetIDs:     []string{"action"},
		Presets:       presets,
		Global:        defaultGlobal(),
		ExistingNames: map[string]struct{}{"Action": {}},
	})
	require.Len(t, channels, 1)
	assert.Equal(t, "Action (2)", channels[0].Name)
}

func TestMaterializeErasRequiresTenItemsAndFourHours(t *testing.T) {
	idx := library.New()
	var items []model.LibraryItem
	for i := 0; i < 12; i++ {
		items = append(items, model.LibraryItem{
			ID: "m" + string(rune('a'+i)), Kind: model.KindMovie,
			DurationMs: 30 * 60_000, ProductionYear: 1995,
		})
	}
	idx.Replace(items)

	channels := Materialize(idx, Request{
		PresetIDs: []string{"eras"},
		Presets:   map[string]PresetDef{"eras": {ID: "eras", Kind: PresetEras, Name: "Eras"}},
		Global:    defaultGlobal(),
	})
	require.Len(t, channels, 1)
	assert.Equal(t, "90s Channel", channels[0].Name)
}

func TestMaterializeDirectorsPriorityFirst(t *testing.T) {
	idx := library.New()
	idx.Replace([]model.LibraryItem{
		{ID: "m1", Kind: model.KindMovie, DurationMs: 3 * 3_600_000, People: []model.Person{{Name: "Obscure Director", Role: model.RoleDirector}}},
		{ID: "m2", Kind: model.KindMovie, DurationMs: 3 * 3_600_000, People: []model.Person{{Name: "Obscure Director", Role: model.RoleDirector}}},
		{ID: "m3", Kind: model.KindMovie, DurationMs: 3 * 3_600_000, People: []model.Person{{Name: "Steven Spielberg", Role: model.RoleDirector}}},
		{ID: "m4", Kind: model.KindMovie, DurationMs: 3 * 3_600_000, People: []model.Person{{Name: "Steven Spielberg", Role: model.RoleDirector}}},
	})

	channels := Materialize(idx, Request{
		PresetIDs: []string{"directors"},
		Presets:   map[string]PresetDef{"directors": {ID: "directors", Kind: PresetDirectors, Name: "Directors"}},
		Global:    defaultGlobal(),
	})
	require.Len(t, channels, 2)
	assert.Equal(t, "Steven Spielberg", channels[0].Name, "curated entries rank ahead of uncurated ones regardless of count")
}

func TestMaterializeUnknownPresetIDSkipped(t *testing.T) {
	idx := library.New()
	channels := Materialize(idx, Request{
		PresetIDs: []string{"does-not-exist"},
		Presets:   map[string]PresetDef{},
		Global:    defaultGlobal(),
	})
	assert.Empty(t, channels)
}
