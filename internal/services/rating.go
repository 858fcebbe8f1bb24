package services

import (
	"context"
	"log"
	"time"

	"github.com/onairfm/apiserver/internal/events"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
)

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	Upsert(ctx context.Context, rating types.Rating) error
	Aggregate(ctx context.Context, songID string) (positive, negative int, err error)
	IdentityVote(ctx context.Context, songID, identity string) (int, error)
}

// RatingPublisher announces persisted ratings to analytics consumers.
type RatingPublisher interface {
	PublishRecorded(ctx context.Context, event events.RatingEvent) error
}

// RatingService encapsulates rating use-cases. It is the single write
// path for votes, shared by the HTTP handler and the ingest worker.
type RatingService struct {
	repo      RatingRepository
	publisher RatingPublisher
}

// NewRatingService constructs a RatingService. publisher may be nil when
// no broker is configured.
func NewRatingService(repo RatingRepository, publisher RatingPublisher) *RatingService {
	return &RatingService{repo: repo, publisher: publisher}
}

// Record validates and persists a vote, replacing any previous vote by
// the same identity for the same song.
func (s *RatingService) Record(ctx context.Context, rating types.Rating) error {
	if rating.SongID == "" || rating.Identity == "" {
		return store.ErrInvalidRating
	}
	if rating.Value != 1 && rating.Value != -1 {
		return store.ErrInvalidRating
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now()
	}

	if err := s.repo.Upsert(ctx, rating); err != nil {
		return err
	}

	// Publishing is best effort; a broker outage must not fail a vote
	// that is already persisted.
	if s.publisher != nil {
		event := events.RatingEvent{
			SongID:        rating.SongID,
			Identity:      rating.Identity,
			SourceAddress: rating.SourceAddress,
			Value:         rating.Value,
			CreatedAt:     rating.CreatedAt,
		}
		if err := s.publisher.PublishRecorded(ctx, event); err != nil {
			log.Printf("publish recorded rating for song %s: %v", rating.SongID, err)
		}
	}
	return nil
}

// Aggregate returns the positive/negative vote counts for a song.
func (s *RatingService) Aggregate(ctx context.Context, songID string) (types.RatingAggregate, error) {
	positive, negative, err := s.repo.Aggregate(ctx, songID)
	if err != nil {
		return types.RatingAggregate{}, err
	}
	return types.RatingAggregate{PositiveCount: positive, NegativeCount: negative}, nil
}

// IdentityVote returns the stored value for a (song, identity) pair, or
// store.ErrNotFound when the pair has not voted.
func (s *RatingService) IdentityVote(ctx context.Context, songID, identity string) (int, error) {
	return s.repo.IdentityVote(ctx, songID, identity)
}
