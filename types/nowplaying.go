package types

import "time"

// NowPlaying is a snapshot of the track currently on air, as reported by
// the upstream stream metadata endpoint.
type NowPlaying struct {
	// SongID is derived from title and artist and matches the ids the
	// rating endpoints are called with.
	SongID string `json:"song_id"`

	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`

	// ArtworkURL is the upstream cover art location, if any.
	ArtworkURL string `json:"artwork_url,omitempty"`

	// StartedAt is when this server first observed the track.
	StartedAt time.Time `json:"started_at"`
}
