package iptv

import (
	"testing"

	"github.com/cablecast/cablecast/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestGenerateM3UEmitsHeaderAndEntriesPerChannel(t *testing.T) {
	channels := []model.Channel{
		{Number: 1, Name: "Sitcom Channel", PresetID: "sitcoms"},
		{Number: 2, Name: "Movie Channel"},
	}

	out := string(GenerateM3U(channels, "http://host:8080", "http://host:8080/api/iptv/epg.xml"))

	assert.Contains(t, out, `#EXTM3U url-tvg="http://host:8080/api/iptv/epg.xml"`)
	assert.Contains(t, out, `tvg-id="ch-1"`)
	assert.Contains(t, out, `group-title="sitcoms"`)
	assert.Contains(t, out, `tvg-id="ch-2"`)
	assert.Contains(t, out, `group-title="cablecast"`)
	assert.Contains(t, out, "http://host:8080/api/iptv/channel/1")
	assert.Contains(t, out, "http://host:8080/api/iptv/channel/2")
}

func TestGenerateM3UStripsTrailingSlashFromBaseURL(t *testing.T) {
	channels := []model.Channel{{Number: 7, Name: "X"}}
	out := string(GenerateM3U(channels, "http://host:8080/", "http://host:8080/api/iptv/epg.xml"))
	assert.Contains(t, out, "http://host:8080/api/iptv/channel/7")
	assert.NotContains(t, out, "http://host:8080//api/iptv/channel/7")
}

func TestEscapeAttrSanitizesQuotesAndNewlines(t *testing.T) {
	assert.Equal(t, "it's fine here", escapeAttr("it\"s fine\nhere"))
}
