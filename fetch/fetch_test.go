package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Southclaws/fault/ftag"
)

func TestGetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mid")
	if err := os.WriteFile(path, []byte("MThd"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := New(time.Second)
	for _, ref := range []string{path, "file://" + path} {
		data, err := f.Get(context.Background(), ref)
		if err != nil {
			t.Fatalf("Get(%q): %v", ref, err)
		}
		if string(data) != "MThd" {
			t.Errorf("Get(%q) = %q", ref, data)
		}
	}
}

func TestGetMissingFile(t *testing.T) {
	_, err := New(time.Second).Get(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Get() of a missing file returned nil")
	}
	if ftag.Get(err) != ftag.NotFound {
		t.Errorf("tag = %s, want %s", ftag.Get(err), ftag.NotFound)
	}
}

func TestGetURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/perf.json":
			w.Write([]byte(`{"title":"x"}`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(time.Second)
	data, err := f.Get(context.Background(), srv.URL+"/perf.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"title":"x"}` {
		t.Errorf("body = %q", data)
	}

	_, err = f.Get(context.Background(), srv.URL+"/missing")
	if ftag.Get(err) != ftag.NotFound {
		t.Errorf("404 tag = %v", ftag.Get(err))
	}

	_, err = f.Get(context.Background(), srv.URL+"/broken")
	if err == nil || ftag.Get(err) == ftag.NotFound {
		t.Errorf("500 error = %v", err)
	}
}

func TestGetURLHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := New(time.Minute).Get(ctx, srv.URL); err == nil {
		t.Error("Get() ignored context cancellation")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"", "a.mid", "a.mid"},
		{"/shows/gig.json", "", ""},
		{"/shows/gig.json", "files/a.mid", "/shows/files/a.mid"},
		{"/shows/gig.json", "/abs/a.mid", "/abs/a.mid"},
		{"file:///shows/gig.json", "a.mid", "/shows/a.mid"},
		{"/shows/gig.json", "https://cdn.example/a.mid", "https://cdn.example/a.mid"},
		{"https://example.com/shows/gig.json", "a.mid", "https://example.com/shows/a.mid"},
		{"https://example.com/shows/gig.json", "../b.mid", "https://example.com/b.mid"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.base, tt.ref); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestGetURLRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := New(time.Second)
	f.maxSize = 10
	if data, err := f.Get(context.Background(), srv.URL); err != nil || len(data) != 10 {
		t.Fatalf("body at the limit: %q, %v", data, err)
	}

	f.maxSize = 8
	_, err := f.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("oversized body returned without error")
	}
	if ftag.Get(err) != ftag.InvalidArgument {
		t.Errorf("tag = %s", ftag.Get(err))
	}
	if !strings.Contains(err.Error(), "larger than 8 bytes") {
		t.Errorf("error = %q", err.Error())
	}
}
