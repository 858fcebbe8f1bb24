package services

import (
	"context"
	"errors"
	"testing"

	"github.com/onairfm/apiserver/internal/events"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
)

type recordingRepo struct {
	upserts []types.Rating
	err     error
}

func (r *recordingRepo) Upsert(ctx context.Context, rating types.Rating) error {
	if r.err != nil {
		return r.err
	}
	r.upserts = append(r.upserts, rating)
	return nil
}

func (r *recordingRepo) Aggregate(ctx context.Context, songID string) (int, int, error) {
	return 0, 0, r.err
}

func (r *recordingRepo) IdentityVote(ctx context.Context, songID, identity string) (int, error) {
	return 0, store.ErrNotFound
}

type capturingPublisher struct {
	published []events.RatingEvent
	err       error
}

func (p *capturingPublisher) PublishRecorded(ctx context.Context, event events.RatingEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func TestRecordPublishesEvent(t *testing.T) {
	repo := &recordingRepo{}
	publisher := &capturingPublisher{}
	svc := NewRatingService(repo, publisher)

	rating := types.Rating{SongID: "abc", Identity: "u1", SourceAddress: "203.0.113.9", Value: 1}
	if err := svc.Record(context.Background(), rating); err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserts))
	}
	if repo.upserts[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be filled in")
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}
	event := publisher.published[0]
	if event.SongID != "abc" || event.Identity != "u1" || event.Value != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	cases := []types.Rating{
		{SongID: "", Identity: "u1", Value: 1},
		{SongID: "abc", Identity: "", Value: 1},
		{SongID: "abc", Identity: "u1", Value: 0},
		{SongID: "abc", Identity: "u1", Value: 5},
	}
	for _, rating := range cases {
		repo := &recordingRepo{}
		svc := NewRatingService(repo, nil)

		if err := svc.Record(context.Background(), rating); !errors.Is(err, store.ErrInvalidRating) {
			t.Fatalf("rating %+v: expected ErrInvalidRating, got %v", rating, err)
		}
		if len(repo.upserts) != 0 {
			t.Fatalf("rating %+v: repository must not be reached", rating)
		}
	}
}

func TestRecordSurvivesPublishFailure(t *testing.T) {
	repo := &recordingRepo{}
	publisher := &capturingPublisher{err: errors.New("broker down")}
	svc := NewRatingService(repo, publisher)

	rating := types.Rating{SongID: "abc", Identity: "u1", Value: -1}
	if err := svc.Record(context.Background(), rating); err != nil {
		t.Fatalf("record must not fail on publish error, got %v", err)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected the vote to be persisted")
	}
}

func TestRecordPropagatesStoreFailure(t *testing.T) {
	repo := &recordingRepo{err: errors.New("connection refused")}
	publisher := &capturingPublisher{}
	svc := NewRatingService(repo, publisher)

	rating := types.Rating{SongID: "abc", Identity: "u1", Value: 1}
	if err := svc.Record(context.Background(), rating); err == nil {
		t.Fatalf("expected store error to surface")
	}
	if len(publisher.published) != 0 {
		t.Fatalf("no event may be published for a failed write")
	}
}

func TestAggregateShapesResponse(t *testing.T) {
	svc := NewRatingService(&recordingRepo{}, nil)

	aggregate, err := svc.Aggregate(context.Background(), "abc")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if aggregate.PositiveCount != 0 || aggregate.NegativeCount != 0 {
		t.Fatalf("unexpected aggregate %+v", aggregate)
	}
}
