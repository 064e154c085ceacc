package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ward/ward/internal/platform/auth"
)

func TestTokenBucket_AllowsBurstThenBlocks(t *testing.T) {
	now := time.Now()
	b := newTokenBucket(1, 3, now)

	for i := 0; i < 3; i++ {
		if ok, _ := b.take(now); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry := b.take(now)
	if ok {
		t.Fatal("expected bucket to be empty")
	}
	if retry < 1 {
		t.Errorf("expected positive retry-after, got %d", retry)
	}

	if ok, _ := b.take(now.Add(1100 * time.Millisecond)); !ok {
		t.Error("expected a token after refill")
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	e := echo.New()
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func(user string) error {
		req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
		req = req.WithContext(auth.WithUser(req.Context(), user))
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := call("a"); err != nil {
		t.Fatalf("first request for a: %v", err)
	}
	err := call("a")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for second request, got %v", err)
	}
	if err := call("b"); err != nil {
		t.Errorf("user b should have its own bucket: %v", err)
	}
}
