package upstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/cablecast/cablecast/internal/clock"
	"github.com/cablecast/cablecast/internal/model"
)

func newPlaySessionID() string {
	return uuid.NewString()
}

// rawItem mirrors Upstream's wire shape for a library item (Jellyfin/Emby
// "BaseItemDto" conventions: RunTimeTicks in 100ns units, flat People list
// with a Type/Role field).
type rawItem struct {
	ID                string      `json:"Id"`
	Type              string      `json:"Type"`
	Name              string      `json:"Name"`
	SeriesID          string      `json:"SeriesId"`
	SeriesName        string      `json:"SeriesName"`
	ParentIndexNumber int         `json:"ParentIndexNumber"`
	IndexNumber       int         `json:"IndexNumber"`
	RunTimeTicks      int64       `json:"RunTimeTicks"`
	Genres            []string    `json:"Genres"`
	OfficialRating    string      `json:"OfficialRating"`
	ProductionYear    int         `json:"ProductionYear"`
	DateCreated       time.Time   `json:"DateCreated"`
	Studios           []rawStudio `json:"Studios"`
	People            []rawPerson `json:"People"`
	ImageTags         struct {
		Primary string `json:"Primary"`
		Banner  string `json:"Banner"`
	} `json:"ImageTags"`
	UserData rawUserData `json:"UserData"`
}

type rawStudio struct {
	Name string `json:"Name"`
}

type rawPerson struct {
	Name string `json:"Name"`
	Type string `json:"Type"` // "Actor", "Director", "Composer", ...
}

type rawUserData struct {
	Played             bool    `json:"Played"`
	IsFavorite         bool    `json:"IsFavorite"`
	PlayedPercentage   float64 `json:"PlayedPercentage"`
	LastPlayedDate     time.Time `json:"LastPlayedDate"`
}

func (ri rawItem) toModel() model.LibraryItem {
	kind := model.KindMovie
	if ri.Type == "Episode" {
		kind = model.KindEpisode
	}

	studios := make([]string, 0, len(ri.Studios))
	for _, s := range ri.Studios {
		studios = append(studios, s.Name)
	}

	people := make([]model.Person, 0, len(ri.People))
	for _, p := range ri.People {
		role := model.PersonRole(normalizeRole(p.Type))
		people = append(people, model.Person{Name: p.Name, Role: role})
	}

	return model.LibraryItem{
		ID:             ri.ID,
		Kind:           kind,
		Name:           ri.Name,
		SeriesID:       ri.SeriesID,
		SeriesName:     ri.SeriesName,
		SeasonIndex:    ri.ParentIndexNumber,
		EpisodeIndex:   ri.IndexNumber,
		DurationMs:     clock.TicksToMs(ri.RunTimeTicks),
		Genres:         ri.Genres,
		Rating:         ri.OfficialRating,
		ProductionYear: ri.ProductionYear,
		DateAdded:      ri.DateCreated,
		Studios:        studios,
		People:         people,
		ThumbnailURL:   ri.ImageTags.Primary,
		BannerURL:      ri.ImageTags.Banner,
		UserData: model.UserData{
			Watched:       ri.UserData.Played,
			Favorite:      ri.UserData.IsFavorite,
			PlayedPercent: ri.UserData.PlayedPercentage,
			LastPlayed:    ri.UserData.LastPlayedDate,
		},
	}
}

func normalizeRole(t string) string {
	switch t {
	case "Director":
		return string(model.RoleDirector)
	case "Composer":
		return string(model.RoleComposer)
	default:
		return string(model.RoleActor)
	}
}
