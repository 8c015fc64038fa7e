package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayafuji/melodine/internal/constants"
	"github.com/ayafuji/melodine/internal/structures"
)

const defaultBaseURL = "https://itunes.apple.com"

// Entity selects the catalog record kind to search for.
type Entity string

const (
	EntitySong  Entity = "song"
	EntityAlbum Entity = "album"
)

// Artist is a synthetic record grouped out of song results: the catalog has
// no artist images, so artwork is borrowed from the artist's first song.
type Artist struct {
	Name       string
	ArtworkURL string
}

// Client queries the public song/album catalog search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *resultCache
}

// New creates a catalog client. An empty baseURL selects the public API.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// The public API throttles aggressively; stay well under its limit.
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		cache:   newResultCache(constants.ResultCacheTTL),
	}
}

type searchResponse struct {
	ResultCount int                `json:"resultCount"`
	Results     []structures.Track `json:"results"`
}

// Search queries the catalog for songs or albums matching term. Results are
// memoized per term+entity+limit for a few minutes.
func (c *Client) Search(ctx context.Context, term string, entity Entity, limit int) ([]structures.Track, error) {
	cacheKey := term + "_" + string(entity) + "_" + strconv.Itoa(limit)
	if tracks, ok := c.cache.get(cacheKey); ok {
		return tracks, nil
	}

	query := url.Values{}
	query.Set("term", term)
	query.Set("entity", string(entity))
	query.Set("limit", strconv.Itoa(limit))

	results, err := c.fetch(ctx, c.baseURL+"/search?"+query.Encode())
	if err != nil {
		return nil, err
	}

	c.cache.set(cacheKey, results)
	return results, nil
}

// Lookup fetches the songs belonging to a collection by its catalog ID.
// The response mixes in a collection header record; only song records (those
// with a title) are returned.
func (c *Client) Lookup(ctx context.Context, collectionID int64) ([]structures.Track, error) {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(collectionID, 10))
	query.Set("entity", string(EntitySong))

	results, err := c.fetch(ctx, c.baseURL+"/lookup?"+query.Encode())
	if err != nil {
		return nil, err
	}

	songs := make([]structures.Track, 0, len(results))
	for _, t := range results {
		if t.Title != "" {
			songs = append(songs, t)
		}
	}

	return songs, nil
}

// SearchArtists searches songs for term and groups them into unique artists,
// keeping first-seen order and each artist's first artwork.
func (c *Client) SearchArtists(ctx context.Context, term string, limit int) ([]Artist, error) {
	tracks, err := c.Search(ctx, term, EntitySong, 20)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var artists []Artist

	for _, t := range tracks {
		if t.Artist == "" || seen[t.Artist] {
			continue
		}
		seen[t.Artist] = true

		artwork := t.ArtworkURL
		if artwork == "" {
			artwork = t.ArtworkSmall
		}

		artists = append(artists, Artist{Name: t.Artist, ArtworkURL: artwork})
		if len(artists) >= limit {
			break
		}
	}

	return artists, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]structures.Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return parsed.Results, nil
}
