package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/onairfm/apiserver/internal/storage"
)

const (
	artworkKeyPrefix   = "artwork/"
	maxArtworkBytes    = 8 << 20
	artworkFetchTimeout = 15 * time.Second
)

// ArtworkCache copies upstream cover art into object storage so clients
// fetch it from us instead of the upstream CDN.
type ArtworkCache struct {
	store  storage.ObjectStorage
	client *http.Client
}

func NewArtworkCache(store storage.ObjectStorage) *ArtworkCache {
	return &ArtworkCache{
		store:  store,
		client: &http.Client{Timeout: artworkFetchTimeout},
	}
}

// CacheTrack downloads the track's cover art and stores it under the
// song id. A track without artwork is not an error.
func (c *ArtworkCache) CacheTrack(ctx context.Context, songID, artworkURL string) error {
	if artworkURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxArtworkBytes {
		return errors.New("artwork too large")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return c.store.Put(ctx, artworkKeyPrefix+songID, bytes.NewReader(data), int64(len(data)), contentType)
}

// Open returns a reader for the cached artwork of a song.
func (c *ArtworkCache) Open(ctx context.Context, songID string) (io.ReadCloser, error) {
	return c.store.Get(ctx, artworkKeyPrefix+songID)
}
