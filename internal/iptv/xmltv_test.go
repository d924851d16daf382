package iptv

import (
	"testing"
	"time"

	"github.com/cablecast/cablecast/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateXMLTVIncludesOnlyRealPrograms(t *testing.T) {
	channels := []model.Channel{{Number: 1, Name: "Sitcom Channel"}}
	start := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	programs := map[int][]model.ScheduleProgram{
		1: {
			{Kind: model.ProgramReal, Title: "Episode One", StartTime: start, EndTime: start.Add(30 * time.Minute)},
			{Kind: model.ProgramInterstitial, Title: "Filler", StartTime: start.Add(30 * time.Minute), EndTime: start.Add(45 * time.Minute)},
		},
	}

	tv := GenerateXMLTV(channels, programs)

	require.Len(t, tv.Channels, 1)
	assert.Equal(t, "ch-1", tv.Channels[0].ID)
	require.Len(t, tv.Programs, 1)
	assert.Equal(t, "Episode One", tv.Programs[0].Title)
	assert.Equal(t, "ch-1", tv.Programs[0].Channel)
}

func TestFormatXMLTVTimeUsesUTCOffset(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2026, 7, 30, 8, 0, 0, 0, loc)
	assert.Equal(t, "20260730130000 +0000", formatXMLTVTime(local))
}

func TestMarshalXMLTVProducesValidDocument(t *testing.T) {
	tv := GenerateXMLTV([]model.Channel{{Number: 1, Name: "X"}}, nil)
	data, err := MarshalXMLTV(tv)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "<?xml version=")
	assert.Contains(t, s, "<!DOCTYPE tv SYSTEM \"xmltv.dtd\">")
	assert.Contains(t, s, "<tv ")
	assert.Contains(t, s, `<channel id="ch-1">`)
}
