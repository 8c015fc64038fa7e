package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/ayafuji/melodine/internal/logger"
	"github.com/ayafuji/melodine/internal/structures"
)

const defaultProxyBaseURL = "https://api.allorigins.win"

// videoIDPatterns are tried in order against the raw search payload. The
// payload is unstructured HTML/JSON soup, so extraction is purely pattern
// based; all patterns capture the fixed 11-character video ID token.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`),
	regexp.MustCompile(`watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
}

// Resolver maps a track to a playable source: a full-length embed found via
// external video search, or the track's short preview URL as fallback.
//
// Embed resolutions are cached for the process lifetime under the track's
// title+artist key. Preview fallbacks are deliberately not cached: embed
// lookup is expensive and stable once found, while falling back costs nothing
// and a later attempt may still turn up an embed.
type Resolver struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]structures.Source
}

// New creates a resolver. An empty baseURL selects the public proxy.
func New(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = defaultProxyBaseURL
	}

	return &Resolver{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]structures.Source),
	}
}

// searchVariants builds the lookup phrases in descending specificity.
func searchVariants(track structures.Track) []string {
	return []string{
		fmt.Sprintf("%s %s official audio", track.Title, track.Artist),
		fmt.Sprintf("%s %s official", track.Title, track.Artist),
		fmt.Sprintf("%s %s", track.Artist, track.Title),
		fmt.Sprintf("%s %s", track.Title, track.Artist),
	}
}

func cacheKey(track structures.Track) string {
	return track.Title + " " + track.Artist
}

// Resolve finds a playable source for the track. It never fails: when every
// variant lookup errors out or matches nothing, the preview fallback is
// returned even if its URL is empty.
func (r *Resolver) Resolve(ctx context.Context, track structures.Track) structures.Source {
	key := cacheKey(track)

	r.mu.Lock()
	if src, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return src
	}
	r.mu.Unlock()

	for _, phrase := range searchVariants(track) {
		payload, err := r.lookup(ctx, phrase)
		if err != nil {
			logger.Debug("video lookup failed for %q: %v", phrase, err)
			continue
		}

		for _, pattern := range videoIDPatterns {
			if m := pattern.FindStringSubmatch(payload); m != nil {
				src := structures.Source{Kind: structures.SourceEmbed, VideoID: m[1]}

				r.mu.Lock()
				r.cache[key] = src
				r.mu.Unlock()

				logger.Debug("resolved %q to embed %s", key, src.VideoID)
				return src
			}
		}
	}

	return structures.Source{Kind: structures.SourcePreview, URL: track.PreviewURL}
}

// proxyEnvelope is the JSON wrapper the proxy puts around the fetched page.
type proxyEnvelope struct {
	Contents string `json:"contents"`
}

// lookup fetches the raw video-search results page for phrase through the
// proxy. The response has no guaranteed schema beyond the contents wrapper.
func (r *Resolver) lookup(ctx context.Context, phrase string) (string, error) {
	target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(phrase)
	proxyURL := r.baseURL + "/get?url=" + url.QueryEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var envelope proxyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("failed to decode proxy response: %w", err)
	}

	if envelope.Contents == "" {
		return "", fmt.Errorf("empty proxy payload")
	}

	return envelope.Contents, nil
}
