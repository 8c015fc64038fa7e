package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ayafuji/melodine/internal/structures"
)

func proxyServer(t *testing.T, requests *atomic.Int64, payload string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("url") == "" {
			t.Error("expected a url query parameter")
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"contents": payload})
	}))
}

func TestResolveFindsEmbedAndCachesIt(t *testing.T) {
	var requests atomic.Int64
	srv := proxyServer(t, &requests, `<html>"videoId":"abc12345678" more soup</html>`, http.StatusOK)
	defer srv.Close()

	r := New(srv.URL)
	track := structures.Track{Title: "Song", Artist: "Artist", PreviewURL: "http://x/p.m4a"}

	src := r.Resolve(context.Background(), track)
	if src.Kind != structures.SourceEmbed {
		t.Fatalf("expected embed source, got %v", src.Kind)
	}
	if src.VideoID != "abc12345678" {
		t.Errorf("unexpected video ID %q", src.VideoID)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("first variant matched, expected 1 lookup, got %d", got)
	}

	// Second resolve must be served from the cache without any request.
	requests.Store(0)
	again := r.Resolve(context.Background(), track)
	if again != src {
		t.Error("cached resolution should be identical")
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("cached resolve should not hit the proxy, got %d requests", got)
	}
}

func TestResolveFindsEmbedOnLaterVariant(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Only the third phrase ("Artist Song") has a hit; earlier, more
		// specific variants return unmatchable payloads.
		payload := "no ids here"
		if n := requests.Load(); n == 3 {
			payload = `"videoId":"abc12345678"`
		}
		json.NewEncoder(w).Encode(map[string]string{"contents": payload})
	}))
	defer srv.Close()

	r := New(srv.URL)
	track := structures.Track{Title: "Song", Artist: "Artist", PreviewURL: "http://x/p.m4a"}

	src := r.Resolve(context.Background(), track)
	if src.Kind != structures.SourceEmbed || src.VideoID != "abc12345678" {
		t.Fatalf("expected embed from third variant, got %+v", src)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("expected resolution to stop at the matching variant, got %d lookups", got)
	}

	// The hit is cached regardless of which variant produced it.
	requests.Store(0)
	if again := r.Resolve(context.Background(), track); again != src {
		t.Error("cached resolution should be identical")
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("cached resolve should not hit the proxy, got %d requests", got)
	}
}

func TestResolveMatchesLaterPatterns(t *testing.T) {
	var requests atomic.Int64
	srv := proxyServer(t, &requests, `<a href="/watch?v=xyz98765432">play</a>`, http.StatusOK)
	defer srv.Close()

	r := New(srv.URL)
	src := r.Resolve(context.Background(), structures.Track{Title: "Song", Artist: "Artist"})

	if src.Kind != structures.SourceEmbed || src.VideoID != "xyz98765432" {
		t.Errorf("expected embed xyz98765432, got %+v", src)
	}
}

func TestResolveFallsBackToPreviewAndDoesNotCache(t *testing.T) {
	var requests atomic.Int64
	srv := proxyServer(t, &requests, "nothing matching here", http.StatusOK)
	defer srv.Close()

	r := New(srv.URL)
	track := structures.Track{Title: "Song", Artist: "Artist", PreviewURL: "http://x/p.m4a"}

	src := r.Resolve(context.Background(), track)
	if src.Kind != structures.SourcePreview || src.URL != track.PreviewURL {
		t.Fatalf("expected preview fallback, got %+v", src)
	}
	if got := requests.Load(); got != 4 {
		t.Errorf("expected all 4 variants tried, got %d", got)
	}

	// Fallbacks are not cached: a later resolve tries the lookups again.
	requests.Store(0)
	r.Resolve(context.Background(), track)
	if got := requests.Load(); got != 4 {
		t.Errorf("preview fallback must not be cached, got %d requests on retry", got)
	}
}

func TestResolveSurvivesProxyErrors(t *testing.T) {
	var requests atomic.Int64
	srv := proxyServer(t, &requests, "", http.StatusBadGateway)
	defer srv.Close()

	r := New(srv.URL)
	track := structures.Track{Title: "Song", Artist: "Artist"}

	// No preview URL either: the fallback still returns, with an empty URL,
	// and never panics.
	src := r.Resolve(context.Background(), track)
	if src.Kind != structures.SourcePreview || src.URL != "" {
		t.Errorf("expected empty preview fallback, got %+v", src)
	}
}

func TestResolveRejectsShortTokens(t *testing.T) {
	var requests atomic.Int64
	srv := proxyServer(t, &requests, `"videoId":"short" watch?v=alsoshort`, http.StatusOK)
	defer srv.Close()

	r := New(srv.URL)
	src := r.Resolve(context.Background(), structures.Track{Title: "Song", Artist: "Artist", PreviewURL: "p"})

	if src.Kind != structures.SourcePreview {
		t.Errorf("tokens shorter than 11 characters must not match, got %+v", src)
	}
}

func TestSearchVariantOrder(t *testing.T) {
	variants := searchVariants(structures.Track{Title: "Song", Artist: "Artist"})

	want := []string{
		"Song Artist official audio",
		"Song Artist official",
		"Artist Song",
		"Song Artist",
	}
	if len(variants) != len(want) {
		t.Fatalf("expected %d variants, got %d", len(want), len(variants))
	}
	for i, v := range variants {
		if v != want[i] {
			t.Errorf("variant %d: got %q, want %q", i, v, want[i])
		}
	}
}
