package scheduler

import (
	"sort"

	"github.com/cablecast/cablecast/internal/model"
)

// rating bucket classification for mixing control (spec.md §4.5).
const (
	bucketKids  = "kids"
	bucketAdult = "adult"
)

var kidsRatings = map[string]struct{}{
	"G": {}, "PG": {}, "TV-Y": {}, "TV-Y7": {}, "TV-Y7-FV": {}, "TV-G": {}, "TV-PG": {},
}

func ratingBucket(rating string) string {
	if _, ok := kidsRatings[rating]; ok {
		return bucketKids
	}
	return bucketAdult
}

// classify splits resolved items into standalone movies and series-grouped
// episodes (sorted by season/episode within each series), and reports
// whether the channel is movie-only (spec.md §4.5).
func classify(items []model.LibraryItem) (standalone []model.LibraryItem, seriesMap map[string][]model.LibraryItem, isMovieOnly bool) {
	seriesMap = map[string][]model.LibraryItem{}
	for _, it := range items {
		switch it.Kind {
		case model.KindMovie:
			standalone = append(standalone, it)
		case model.KindEpisode:
			seriesMap[it.SeriesID] = append(seriesMap[it.SeriesID], it)
		}
	}
	for sid := range seriesMap {
		eps := seriesMap[sid]
		sortEpisodes(eps)
		seriesMap[sid] = eps
	}
	isMovieOnly = len(standalone) > 0 && len(seriesMap) == 0
	return standalone, seriesMap, isMovieOnly
}

func sortEpisodes(eps []model.LibraryItem) {
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].SeasonIndex != eps[j].SeasonIndex {
			return eps[i].SeasonIndex < eps[j].SeasonIndex
		}
		return eps[i].EpisodeIndex < eps[j].EpisodeIndex
	})
}

// CooldownWindow reports how far back the cooldown set must be queried:
// 8h for movie-only channels, 24h otherwise (spec.md §4.5).
func CooldownWindow(isMovieOnly bool) int64 {
	if isMovieOnly {
		return 8 * 3_600_000
	}
	return 24 * 3_600_000
}
