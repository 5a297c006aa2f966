package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestClientGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != UserAgent {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			w.Write([]byte("page body"))
		}))
		defer srv.Close()

		body, err := NewClient().Get(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "page body" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("retries transient 500", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte("recovered"))
		}))
		defer srv.Close()

		body, err := NewClient().Get(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "recovered" {
			t.Errorf("body = %q", body)
		}
		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("404 fails without retry", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient().Get(context.Background(), srv.URL)
		var se *StatusError
		if !errors.As(err, &se) || se.Status != 404 {
			t.Fatalf("err = %v, want StatusError 404", err)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("x"))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewClient().Get(ctx, srv.URL); err == nil {
			t.Fatal("expected an error from a cancelled context")
		}
	})
}

func TestClientProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("probe used %s, want HEAD", r.Method)
		}
	}))
	defer srv.Close()

	if err := NewClient().Probe(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer bad.Close()

	if err := NewClient().Probe(context.Background(), bad.URL); err == nil {
		t.Error("expected probe failure on 4xx")
	}
}
