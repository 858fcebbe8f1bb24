package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/onairfm/apiserver/internal/services"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
)

type fakeRatingRepo struct {
	votes map[[2]string]types.Rating
	err   error
}

func newFakeRatingRepo() *fakeRatingRepo {
	return &fakeRatingRepo{votes: map[[2]string]types.Rating{}}
}

func (f *fakeRatingRepo) Upsert(ctx context.Context, rating types.Rating) error {
	if f.err != nil {
		return f.err
	}
	f.votes[[2]string{rating.SongID, rating.Identity}] = rating
	return nil
}

func (f *fakeRatingRepo) Aggregate(ctx context.Context, songID string) (int, int, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	var positive, negative int
	for key, rating := range f.votes {
		if key[0] != songID {
			continue
		}
		if rating.Value == 1 {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative, nil
}

func (f *fakeRatingRepo) IdentityVote(ctx context.Context, songID, identity string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	rating, ok := f.votes[[2]string{songID, identity}]
	if !ok {
		return 0, store.ErrNotFound
	}
	return rating.Value, nil
}

func newRatingTestRouter(repo *fakeRatingRepo) http.Handler {
	router := chi.NewRouter()
	router.Route("/ratings", func(r chi.Router) {
		RatingRouter(r, services.NewRatingService(repo, nil))
	})
	return router
}

func TestCreateRating(t *testing.T) {
	repo := newFakeRatingRepo()
	router := newRatingTestRouter(repo)

	body := `{"songId":"abc","rating":1,"identity":"u1"}`
	req := httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:51234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, ok := repo.votes[[2]string{"abc", "u1"}]
	if !ok {
		t.Fatalf("expected vote to be stored")
	}
	if stored.Value != 1 {
		t.Fatalf("expected value 1, got %d", stored.Value)
	}
	if stored.SourceAddress != "203.0.113.9" {
		t.Fatalf("expected source address without port, got %q", stored.SourceAddress)
	}
}

func TestCreateRatingRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero rating", `{"songId":"abc","rating":0,"identity":"u1"}`},
		{"rating two", `{"songId":"abc","rating":2,"identity":"u1"}`},
		{"rating minus two", `{"songId":"abc","rating":-2,"identity":"u1"}`},
		{"non-numeric rating", `{"songId":"abc","rating":"up","identity":"u1"}`},
		{"missing rating", `{"songId":"abc","identity":"u1"}`},
		{"missing song", `{"rating":1,"identity":"u1"}`},
		{"missing identity", `{"songId":"abc","rating":1}`},
		{"identity too long", `{"songId":"abc","rating":1,"identity":"` + strings.Repeat("x", 200) + `"}`},
		{"not json", `not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRatingRepo()
			router := newRatingTestRouter(repo)

			req := httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if len(repo.votes) != 0 {
				t.Fatalf("expected no vote to be stored")
			}

			var parsed ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if parsed.Error == "" {
				t.Fatalf("expected error message in body")
			}
		})
	}
}

func TestGetAggregate(t *testing.T) {
	repo := newFakeRatingRepo()
	repo.votes[[2]string{"abc", "u1"}] = types.Rating{SongID: "abc", Identity: "u1", Value: 1}
	repo.votes[[2]string{"abc", "u2"}] = types.Rating{SongID: "abc", Identity: "u2", Value: -1}
	router := newRatingTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/ratings/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var parsed types.RatingAggregate
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if parsed.PositiveCount != 1 || parsed.NegativeCount != 1 {
		t.Fatalf("unexpected aggregate %+v", parsed)
	}
}

func TestGetAggregateUnknownSong(t *testing.T) {
	router := newRatingTestRouter(newFakeRatingRepo())

	req := httptest.NewRequest(http.MethodGet, "/ratings/never-played", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown song, got %d", rec.Code)
	}
	var parsed types.RatingAggregate
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if parsed.PositiveCount != 0 || parsed.NegativeCount != 0 {
		t.Fatalf("expected zero counts, got %+v", parsed)
	}
}

func TestGetIdentityVote(t *testing.T) {
	repo := newFakeRatingRepo()
	repo.votes[[2]string{"abc", "u1"}] = types.Rating{SongID: "abc", Identity: "u1", Value: -1}
	router := newRatingTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/ratings/abc/identity/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var parsed IdentityVoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if parsed.Value == nil || *parsed.Value != -1 {
		t.Fatalf("expected value -1, got %+v", parsed.Value)
	}
}

func TestGetIdentityVoteAbsentIsNull(t *testing.T) {
	router := newRatingTestRouter(newFakeRatingRepo())

	req := httptest.NewRequest(http.MethodGet, "/ratings/abc/identity/stranger", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for absent vote, got %d", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body != `{"value":null}` {
		t.Fatalf("expected null value body, got %s", body)
	}
}
