package materializer

import (
	"strings"

	"github.com/cablecast/cablecast/internal/model"
)

// GlobalFilters are the materializer-wide settings layered on top of every
// preset's own ChannelFilter (spec.md §4.4).
type GlobalFilters struct {
	AllowMovies           bool
	AllowEpisodes         bool
	BlockedRatings        []string
	RatingFilterMode      string // "allow" (disguised deny-list, see spec.md §9) or "block"
	BlockedGenres         []string
	SeparateContentTypes  bool
}

// blockedRatingSet returns the effective set of blocked ratings regardless
// of RatingFilterMode's name — spec.md §4.4/§9: when mode=="allow" the list
// still contains blocked ratings, not allowed ones.
func (g GlobalFilters) blockedRatingSet() map[string]struct{} {
	out := make(map[string]struct{}, len(g.BlockedRatings))
	for _, r := range g.BlockedRatings {
		out[strings.ToLower(r)] = struct{}{}
	}
	return out
}

// matchesGlobal applies the global content-type toggle, blocked ratings,
// and blocked genres to one item.
func matchesGlobal(it model.LibraryItem, g GlobalFilters) bool {
	if it.Kind == model.KindMovie && !g.AllowMovies {
		return false
	}
	if it.Kind == model.KindEpisode && !g.AllowEpisodes {
		return false
	}
	blocked := g.blockedRatingSet()
	if _, ok := blocked[strings.ToLower(it.Rating)]; ok {
		return false
	}
	for _, bg := range g.BlockedGenres {
		for _, g2 := range it.Genres {
			if strings.EqualFold(bg, g2) {
				return false
			}
		}
	}
	return true
}

// matchesFilter applies one ChannelFilter's predicate semantics, per
// spec.md §4.4: content-type is an AND, genres is any-match substring,
// excludeGenres disqualifies, rating allow-list must contain the item's
// rating if set, rating exclude-list is any-match disqualification.
func matchesFilter(it model.LibraryItem, f *model.ChannelFilter) bool {
	if f == nil {
		return true
	}
	if it.Kind == model.KindMovie && !f.AllowMovies && (f.AllowMovies || f.AllowEpisodes) {
		return false
	}
	if it.Kind == model.KindEpisode && !f.AllowEpisodes && (f.AllowMovies || f.AllowEpisodes) {
		return false
	}
	if len(f.AllowedGenres) > 0 && !anyGenreMatch(it.Genres, f.AllowedGenres) {
		return false
	}
	if len(f.BlockedGenres) > 0 && anyGenreMatch(it.Genres, f.BlockedGenres) {
		return false
	}
	if len(f.RatingAllow) > 0 && it.Rating != "" && !containsFold(f.RatingAllow, it.Rating) {
		return false
	}
	if len(f.RatingBlock) > 0 && containsFold(f.RatingBlock, it.Rating) {
		return false
	}
	if f.YearMin > 0 && it.ProductionYear != 0 && it.ProductionYear < f.YearMin {
		return false
	}
	if f.YearMax > 0 && it.ProductionYear != 0 && it.ProductionYear > f.YearMax {
		return false
	}
	if f.DurationMinMs > 0 && it.DurationMs < f.DurationMinMs {
		return false
	}
	if f.DurationMaxMs > 0 && it.DurationMs > f.DurationMaxMs {
		return false
	}
	if len(f.Studios) > 0 && !anyStringMatch(it.Studios, f.Studios) {
		return false
	}
	if len(f.Directors) > 0 && !anyPersonMatch(it.People, model.RoleDirector, f.Directors) {
		return false
	}
	if len(f.Actors) > 0 && !anyPersonMatch(it.People, model.RoleActor, f.Actors) {
		return false
	}
	if len(f.Composers) > 0 && !anyPersonMatch(it.People, model.RoleComposer, f.Composers) {
		return false
	}
	if f.UnwatchedOnly && it.UserData.Watched {
		return false
	}
	if f.FavoritesOnly && !it.UserData.Favorite {
		return false
	}
	if f.CollectionID != "" && !containsString(it.CollectionIDs, f.CollectionID) {
		return false
	}
	if f.PlaylistID != "" && !containsString(it.PlaylistIDs, f.PlaylistID) {
		return false
	}
	return true
}

func anyGenreMatch(genres []string, terms []string) bool {
	for _, g := range genres {
		for _, t := range terms {
			if strings.Contains(strings.ToLower(g), strings.ToLower(t)) {
				return true
			}
		}
	}
	return false
}

func anyStringMatch(haystack []string, terms []string) bool {
	for _, h := range haystack {
		for _, t := range terms {
			if strings.EqualFold(h, t) {
				return true
			}
		}
	}
	return false
}

func anyPersonMatch(people []model.Person, role model.PersonRole, names []string) bool {
	for _, p := range people {
		if p.Role != role {
			continue
		}
		for _, n := range names {
			if strings.EqualFold(p.Name, n) {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
