package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/onairfm/apiserver/internal/services"
	"github.com/onairfm/apiserver/internal/store"
	"github.com/onairfm/apiserver/types"
)

// Identity tokens are browser fingerprints of fixed, short length;
// anything longer is rejected at the boundary.
const maxIdentityLength = 128

// RatingHandler provides HTTP handlers for song ratings.
type RatingHandler struct {
	ratingService *services.RatingService
}

// NewRatingHandler constructs a handler with the provided service.
func NewRatingHandler(ratingService *services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// RatingRouter registers rating routes on the given router.
func RatingRouter(r chi.Router, ratingService *services.RatingService) {
	handler := NewRatingHandler(ratingService)

	r.Post("/", handler.CreateRating)
	r.Route("/{songID}", func(r chi.Router) {
		r.Get("/", handler.GetAggregate)
		r.Get("/identity/{identity}", handler.GetIdentityVote)
	})
}

// RatingRequest is the vote payload.
type RatingRequest struct {
	SongID   string `json:"songId"`
	Rating   *int   `json:"rating"`
	Identity string `json:"identity"`
}

// IdentityVoteResponse carries the stored value for a pair, null when
// the identity has not voted.
type IdentityVoteResponse struct {
	Value *int `json:"value"`
}

func (h *RatingHandler) CreateRating(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SongID = strings.TrimSpace(req.SongID)
	req.Identity = strings.TrimSpace(req.Identity)
	if req.SongID == "" {
		writeError(w, http.StatusBadRequest, "songId is required")
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return
	}
	if len(req.Identity) > maxIdentityLength {
		writeError(w, http.StatusBadRequest, "identity too long")
		return
	}
	if req.Rating == nil {
		writeError(w, http.StatusBadRequest, "rating is required")
		return
	}
	if *req.Rating != 1 && *req.Rating != -1 {
		writeError(w, http.StatusBadRequest, "rating must be 1 or -1")
		return
	}

	rating := types.Rating{
		SongID:        req.SongID,
		Identity:      req.Identity,
		SourceAddress: sourceAddress(r),
		Value:         *req.Rating,
	}
	if err := h.ratingService.Record(r.Context(), rating); err != nil {
		if errors.Is(err, store.ErrInvalidRating) {
			writeError(w, http.StatusBadRequest, "invalid rating")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record rating")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "rating recorded"})
}

func (h *RatingHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")

	aggregate, err := h.ratingService.Aggregate(r.Context(), songID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch rating counts")
		return
	}

	writeJSON(w, http.StatusOK, aggregate)
}

func (h *RatingHandler) GetIdentityVote(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songID")
	identity := chi.URLParam(r, "identity")

	value, err := h.ratingService.IdentityVote(r.Context(), songID, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, IdentityVoteResponse{Value: nil})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch vote")
		return
	}

	writeJSON(w, http.StatusOK, IdentityVoteResponse{Value: &value})
}

// sourceAddress extracts the host part of the request origin. RealIP
// middleware has already folded proxy headers into RemoteAddr. Audit
// metadata only.
func sourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
