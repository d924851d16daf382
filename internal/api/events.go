package api

import "github.com/cablecast/cablecast/internal/broadcaster"

func channelsRegeneratedMessage(count int) broadcaster.Message {
	return broadcaster.Message{
		Type:    broadcaster.TypeChannelsRegenerated,
		Payload: map[string]int{"channel_count": count},
	}
}

func librarySyncedMessage(itemCount int) broadcaster.Message {
	return broadcaster.Message{
		Type:    broadcaster.TypeLibrarySynced,
		Payload: map[string]int{"item_count": itemCount},
	}
}
