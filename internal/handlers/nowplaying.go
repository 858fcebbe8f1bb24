package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/onairfm/apiserver/internal/services"
)

// NowPlayingHandler serves the current-track snapshot and its cached
// cover art.
type NowPlayingHandler struct {
	nowPlaying *services.NowPlayingService
	artwork    *services.ArtworkCache
}

// NewNowPlayingHandler constructs a handler. artwork may be nil.
func NewNowPlayingHandler(nowPlaying *services.NowPlayingService, artwork *services.ArtworkCache) *NowPlayingHandler {
	return &NowPlayingHandler{nowPlaying: nowPlaying, artwork: artwork}
}

// NowPlayingRouter registers now-playing routes on the given router.
func NowPlayingRouter(r chi.Router, nowPlaying *services.NowPlayingService, artwork *services.ArtworkCache) {
	handler := NewNowPlayingHandler(nowPlaying, artwork)

	r.Get("/", handler.GetNowPlaying)
	r.Get("/artwork", handler.GetArtwork)
}

func (h *NowPlayingHandler) GetNowPlaying(w http.ResponseWriter, r *http.Request) {
	current, ok := h.nowPlaying.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no track information yet")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *NowPlayingHandler) GetArtwork(w http.ResponseWriter, r *http.Request) {
	current, ok := h.nowPlaying.Current()
	if !ok || h.artwork == nil {
		writeError(w, http.StatusNotFound, "no artwork available")
		return
	}

	reader, err := h.artwork.Open(r.Context(), current.SongID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no artwork available")
		return
	}
	defer reader.Close()

	// Sniff the content type from the stored bytes; backends do not
	// expose it uniformly on read.
	buf := make([]byte, 512)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		writeError(w, http.StatusNotFound, "no artwork available")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(buf[:n]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf[:n])
	_, _ = io.Copy(w, reader)
}
