package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/onairfm/apiserver/config"
	"github.com/onairfm/apiserver/types"
)

const defaultPollInterval = 10 * time.Second

// upstreamTrack is the JSON shape of the external metadata endpoint.
type upstreamTrack struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Artwork string `json:"artwork"`
}

// NowPlayingService polls the upstream stream metadata endpoint and keeps
// the latest track snapshot. It also derives the song ids the rating
// endpoints are keyed by; the rating store still treats those ids as
// opaque strings.
type NowPlayingService struct {
	metadataURL string
	interval    time.Duration
	client      *http.Client
	artwork     *ArtworkCache

	mu      sync.RWMutex
	current types.NowPlaying
	ready   bool
}

// NewNowPlayingService constructs the poller. artwork may be nil when no
// object storage is configured.
func NewNowPlayingService(cfg config.StreamConfig, artwork *ArtworkCache) *NowPlayingService {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &NowPlayingService{
		metadataURL: cfg.MetadataURL,
		interval:    interval,
		client:      &http.Client{Timeout: 10 * time.Second},
		artwork:     artwork,
	}
}

// Run polls until the context is cancelled.
func (s *NowPlayingService) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		log.Printf("now playing refresh: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("now playing refresh: %v", err)
			}
		}
	}
}

// Refresh fetches the upstream metadata once and updates the snapshot.
func (s *NowPlayingService) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.metadataURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata endpoint returned status %d", resp.StatusCode)
	}

	var track upstreamTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return err
	}
	if track.Title == "" && track.Artist == "" {
		return fmt.Errorf("metadata endpoint returned an empty track")
	}

	songID := SongID(track.Title, track.Artist)

	s.mu.Lock()
	changed := !s.ready || s.current.SongID != songID
	if changed {
		s.current = types.NowPlaying{
			SongID:     songID,
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      track.Album,
			ArtworkURL: track.Artwork,
			StartedAt:  time.Now(),
		}
		s.ready = true
	}
	s.mu.Unlock()

	if changed && s.artwork != nil {
		if err := s.artwork.CacheTrack(ctx, songID, track.Artwork); err != nil {
			log.Printf("cache artwork for song %s: %v", songID, err)
		}
	}
	return nil
}

// Current returns the latest snapshot, and false until the first
// successful poll.
func (s *NowPlayingService) Current() (types.NowPlaying, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.ready
}

// SongID derives the track identifier from title and artist. Distinct
// tracks with identical title and artist collide; that is accepted.
func SongID(title, artist string) string {
	sum := sha256.Sum256([]byte(title + "\n" + artist))
	return hex.EncodeToString(sum[:])
}
