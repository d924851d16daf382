package iptv

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/cablecast/cablecast/internal/model"
)

// TV is the XMLTV root document.
type TV struct {
	XMLName      xml.Name    `xml:"tv"`
	Generator    string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorURL string      `xml:"generator-info-url,attr,omitempty"`
	Channels     []XChannel  `xml:"channel"`
	Programs     []XProgramme `xml:"programme"`
}

type XChannel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type XProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
}

const xmltvTimeLayout = "20060102150405 -0700"

// GenerateXMLTV builds the TV document for channels, using programsByChannel
// (channel number -> its programs covering the EPG window) and emitting
// start/stop in YYYYMMDDHHMMSS +0000 format (spec.md §6).
func GenerateXMLTV(channels []model.Channel, programsByChannel map[int][]model.ScheduleProgram) TV {
	tv := TV{
		Generator:    "cablecast",
		GeneratorURL: "https://github.com/cablecast/cablecast",
	}

	for _, ch := range channels {
		id := channelID(ch.Number)
		tv.Channels = append(tv.Channels, XChannel{ID: id, DisplayName: []string{ch.Name}})

		for _, p := range programsByChannel[ch.Number] {
			if p.Kind != model.ProgramReal {
				continue
			}
			tv.Programs = append(tv.Programs, XProgramme{
				Start:   formatXMLTVTime(p.StartTime),
				Stop:    formatXMLTVTime(p.EndTime),
				Channel: id,
				Title:   p.Title,
			})
		}
	}

	return tv
}

func channelID(number int) string {
	return fmt.Sprintf("ch-%d", number)
}

func formatXMLTVTime(t time.Time) string {
	return t.UTC().Format(xmltvTimeLayout)
}

// MarshalXMLTV encodes tv as an indented XML document with the standard
// XMLTV DOCTYPE preamble.
func MarshalXMLTV(tv TV) ([]byte, error) {
	body, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return nil, err
	}
	out := []byte(xml.Header)
	out = append(out, []byte(`<!DOCTYPE tv SYSTEM "xmltv.dtd">`+"\n")...)
	out = append(out, body...)
	return out, nil
}
