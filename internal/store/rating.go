package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/onairfm/apiserver/types"
)

// RatingRepository handles persistence for ratings.
type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert records a vote. The engine's native insert-or-update keyed by the
// (song_id, identity) unique constraint replaces an existing row atomically,
// so a concurrent aggregate never observes the pair as absent and concurrent
// writes for the same pair serialize to last-committed-wins.
func (r *RatingRepository) Upsert(ctx context.Context, rating types.Rating) error {
	// Validation belongs to the API layer; this check and the schema
	// CHECK constraint are the remaining lines of defense.
	if rating.Value != 1 && rating.Value != -1 {
		return ErrInvalidRating
	}
	if rating.SongID == "" || rating.Identity == "" {
		return ErrInvalidRating
	}

	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO ratings (song_id, identity, source_address, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (song_id, identity)
		DO UPDATE SET value = excluded.value,
			source_address = excluded.source_address,
			created_at = excluded.created_at`
	_, err := r.db.ExecContext(
		ctx,
		query,
		rating.SongID,
		rating.Identity,
		rating.SourceAddress,
		rating.Value,
		rating.CreatedAt,
	)
	return err
}

// Aggregate counts positive and negative votes for a song. An unknown song
// id yields zero counts, not an error.
func (r *RatingRepository) Aggregate(ctx context.Context, songID string) (positive, negative int, err error) {
	const query = `
		SELECT
			COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0)
		FROM ratings
		WHERE song_id = $1`
	if err := r.db.QueryRowContext(ctx, query, songID).Scan(&positive, &negative); err != nil {
		return 0, 0, err
	}
	return positive, negative, nil
}

// IdentityVote returns the stored value for a (song, identity) pair, or
// ErrNotFound when the pair has not voted.
func (r *RatingRepository) IdentityVote(ctx context.Context, songID, identity string) (int, error) {
	const query = `
		SELECT value
		FROM ratings
		WHERE song_id = $1 AND identity = $2`
	var value int
	if err := r.db.QueryRowContext(ctx, query, songID, identity).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return value, nil
}
