package types

import "time"

// Rating is one identity's vote on a song. The identity is an opaque
// client-supplied token, not a verified account; at most one row exists
// per (song, identity) pair and a re-vote replaces the previous one.
type Rating struct {
	// ID is the unique identifier of the rating row.
	ID int64 `json:"id" db:"id"`

	// SongID identifies the rated track. It is treated as an opaque
	// string; the server makes no uniqueness claim across real-world
	// tracks.
	SongID string `json:"song_id" db:"song_id"`

	// Identity is the opaque client token the vote is keyed by.
	Identity string `json:"identity" db:"identity"`

	// SourceAddress is the best-effort network address the vote came
	// from. Stored for audit only, never used for authorization.
	SourceAddress string `json:"source_address,omitempty" db:"source_address"`

	// Value is the vote itself, exactly 1 or -1.
	Value int `json:"value" db:"value"`

	// CreatedAt is the timestamp of the most recent write for this
	// (song, identity) pair.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RatingAggregate holds the derived vote counts for one song.
type RatingAggregate struct {
	PositiveCount int `json:"positiveCount"`
	NegativeCount int `json:"negativeCount"`
}
