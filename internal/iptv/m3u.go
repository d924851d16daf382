// Package iptv renders the M3U playlist and XMLTV EPG documents spec.md §6
// describes as thin serializers over the scheduler's channel/program data.
package iptv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cablecast/cablecast/internal/model"
)

// GenerateM3U renders the playlist: #EXTM3U url-tvg header, one #EXTINF
// line per channel, followed by its stream URL (spec.md §6).
func GenerateM3U(channels []model.Channel, baseURL, epgURL string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#EXTM3U url-tvg=\"%s\"\n", epgURL)

	for _, ch := range channels {
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=\"ch-%d\" tvg-name=\"%s\" tvg-chno=\"%d\" tvg-logo=\"\" group-title=\"%s\",%s\n",
			ch.Number, escapeAttr(ch.Name), ch.Number, escapeAttr(groupTitle(ch)), ch.Name)
		fmt.Fprintf(&b, "%s/api/iptv/channel/%s\n", strings.TrimRight(baseURL, "/"), strconv.Itoa(ch.Number))
	}

	return []byte(b.String())
}

func groupTitle(ch model.Channel) string {
	if ch.PresetID != "" {
		return ch.PresetID
	}
	return "cablecast"
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, `"`, `'`)
	return strings.ReplaceAll(s, "\n", " ")
}
