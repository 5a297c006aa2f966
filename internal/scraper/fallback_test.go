package scraper

import (
	"context"
	"errors"
	"testing"
)

func TestRunChain(t *testing.T) {
	ok := func(body string) Strategy {
		return Strategy{Name: "ok-" + body, Run: func(ctx context.Context) ([]byte, error) {
			return []byte(body), nil
		}}
	}
	fail := func(name string) Strategy {
		return Strategy{Name: name, Run: func(ctx context.Context) ([]byte, error) {
			return nil, errors.New(name + " failed")
		}}
	}

	t.Run("first success short circuits", func(t *testing.T) {
		called := false
		second := Strategy{Name: "second", Run: func(ctx context.Context) ([]byte, error) {
			called = true
			return []byte("second"), nil
		}}
		body, used, attempts, err := RunChain(context.Background(), []Strategy{ok("first"), second})
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "first" || used != "ok-first" {
			t.Errorf("got %q via %q", body, used)
		}
		if called {
			t.Error("later strategies must not run after a success")
		}
		if len(attempts) != 0 {
			t.Errorf("expected no failed attempts, got %v", attempts)
		}
	})

	t.Run("falls through failures", func(t *testing.T) {
		body, used, attempts, err := RunChain(context.Background(), []Strategy{fail("api"), fail("html"), ok("page")})
		if err != nil {
			t.Fatal(err)
		}
		if string(body) != "page" || used != "ok-page" {
			t.Errorf("got %q via %q", body, used)
		}
		if len(attempts) != 2 {
			t.Fatalf("expected 2 recorded attempts, got %v", attempts)
		}
		if attempts[0].Strategy != "api" || attempts[1].Strategy != "html" {
			t.Errorf("attempts out of order: %v", attempts)
		}
	})

	t.Run("all fail", func(t *testing.T) {
		_, _, attempts, err := RunChain(context.Background(), []Strategy{fail("a"), fail("b")})
		if err == nil {
			t.Fatal("expected an error")
		}
		if len(attempts) != 2 {
			t.Errorf("every failure must be recorded, got %v", attempts)
		}
	})

	t.Run("cancellation stops the chain", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		s := Strategy{Name: "never", Run: func(ctx context.Context) ([]byte, error) {
			called = true
			return nil, nil
		}}
		_, _, _, err := RunChain(ctx, []Strategy{s})
		if err == nil {
			t.Fatal("expected an error")
		}
		if called {
			t.Error("strategies must not run after cancellation")
		}
	})
}
