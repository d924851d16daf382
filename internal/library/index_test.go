package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cablecast/cablecast/internal/model"
)

func sampleItems() []model.LibraryItem {
	return []model.LibraryItem{
		{ID: "m1", Kind: model.KindMovie, Genres: []string{"Action", "Thriller"}, DurationMs: 7_200_000, ProductionYear: 1999},
		{ID: "m2", Kind: model.KindMovie, Genres: []string{"Action"}, DurationMs: 6_000_000, ProductionYear: 1995},
		{ID: "m3", Kind: model.KindMovie, Genres: []string{"Comedy"}, DurationMs: 5_400_000, ProductionYear: 2001},
		{
			ID: "e1", Kind: model.KindEpisode, SeriesID: "s1",
			People: []model.Person{
				{Name: "Lead Actor", Role: model.RoleActor},
				{Name: "Second Actor", Role: model.RoleActor},
				{Name: "Third Actor", Role: model.RoleActor},
				{Name: "Fourth Actor (uncredited lead)", Role: model.RoleActor},
				{Name: "Some Director", Role: model.RoleDirector},
			},
		},
	}
}

func TestReplaceAndResolve(t *testing.T) {
	idx := New()
	idx.Replace(sampleItems())

	resolved := idx.Resolve([]string{"m1", "m2", "does-not-exist"})
	require.Len(t, resolved, 2, "unknown ids are silently skipped")

	_, ok := idx.Get("m3")
	assert.True(t, ok)
}

func TestGenresLeadOnly(t *testing.T) {
	idx := New()
	idx.Replace(sampleItems())

	buckets := idx.Genres()
	require.NotEmpty(t, buckets)
	assert.Equal(t, "Action", buckets[0].Genre)
	assert.Len(t, buckets[0].Items, 2)
}

func TestPeopleIndexActorTop3(t *testing.T) {
	idx := New()
	idx.Replace(sampleItems())

	actors := idx.PeopleIndex(model.RoleActor)
	names := map[string]bool{}
	for _, b := range actors {
		names[b.Name] = true
	}
	assert.True(t, names["Lead Actor"])
	assert.False(t, names["Fourth Actor (uncredited lead)"], "only top-3 billed actors per item count")
}

func TestDecadesBucketing(t *testing.T) {
	idx := New()
	idx.Replace(sampleItems())

	decades := idx.Decades()
	found := map[int]int{}
	for _, d := range decades {
		found[d.Decade] = len(d.Items)
	}
	assert.Equal(t, 2, found[1990])
	assert.Equal(t, 1, found[2000])
}

func TestAtomicSwapNeverObservesPartialIndex(t *testing.T) {
	idx := New()
	idx.Replace([]model.LibraryItem{{ID: "a"}})
	_, ok := idx.Get("a")
	require.True(t, ok)

	idx.Replace([]model.LibraryItem{{ID: "b"}})
	_, aStillThere := idx.Get("a")
	_, bThere := idx.Get("b")
	assert.False(t, aStillThere)
	assert.True(t, bThere)
}
