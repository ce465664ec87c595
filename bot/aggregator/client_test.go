package aggregator

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestSearchQueryParameters(t *testing.T) {
	var got map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"types":  q.Get("types"),
			"source": q.Get("source"),
			"name":   q.Get("name"),
			"count":  q.Get("count"),
			"pages":  q.Get("pages"),
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	if _, err := client.Search(context.Background(), "alpha", 2, 8); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	want := map[string]string{
		"types":  "search",
		"source": "netease",
		"name":   "alpha",
		"count":  "8",
		"pages":  "2",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("query %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSearchEmptyResultIsNotError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))

	songs, err := client.Search(context.Background(), "nothing", 1, 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("expected no songs, got %d", len(songs))
	}
}

func TestSearchUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Search(context.Background(), "alpha", 1, 10)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %T", err)
	}
	if upstream.Op != "search" {
		t.Errorf("op = %q, want search", upstream.Op)
	}
}

func TestSearchBadShape(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":500,"msg":"oops"}`))
	}))

	_, err := client.Search(context.Background(), "alpha", 1, 10)
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestExtractURLShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "object", body: `{"url":"http://x/a.mp3"}`, want: "http://x/a.mp3"},
		{name: "object with br", body: `{"url":"http://x/a.mp3","br":320}`, want: "http://x/a.mp3"},
		{name: "bare string", body: `"http://x/a.mp3"`, want: "http://x/a.mp3"},
		{name: "empty object", body: `{}`, want: ""},
		{name: "null", body: `null`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractURL([]byte(tt.body)); got != tt.want {
				t.Errorf("extractURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetBinary(t *testing.T) {
	payload := []byte("binary-audio-bytes")
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))

	data, err := client.GetBinary(context.Background(), server.URL+"/a.mp3")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("payload mismatch: %q", data)
	}
}

func TestGetBinaryErrorStatus(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.GetBinary(context.Background(), server.URL+"/a.mp3")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
