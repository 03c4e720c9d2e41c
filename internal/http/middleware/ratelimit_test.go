package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ton_miner/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestActionRateLimitPerAccount(t *testing.T) {
	saved := redisClient
	redisClient = nil
	defer func() { redisClient = saved }()

	r := gin.New()
	r.POST("/collect", ActionRateLimit(2, time.Minute), func(c *gin.Context) {
		var body struct {
			UserID int64 `json:"userId"`
		}
		// the limiter already consumed the body
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": body.UserID})
	})

	for i := 0; i < 2; i++ {
		if w := postJSON(r, "/collect", `{"userId":1}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: %d %s", i, w.Code, w.Body)
		}
	}
	w := postJSON(r, "/collect", `{"userId":1}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d", w.Code)
	}
	if w.Header().Get("X-ActionRateLimit-Remaining") != "0" {
		t.Fatalf("remaining = %q", w.Header().Get("X-ActionRateLimit-Remaining"))
	}
	if w := postJSON(r, "/collect", `{"userId":2}`); w.Code != http.StatusOK {
		t.Fatalf("other account: %d", w.Code)
	}
	// bad bodies go through to the handler
	if w := postJSON(r, "/collect", `nope`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad body: %d", w.Code)
	}
}

func TestWindowCounterResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wc := newWindowCounter()
	wc.now = func() time.Time { return now }

	wc.hit("a", time.Second)
	if n := wc.hit("a", time.Second); n != 2 {
		t.Fatalf("count = %d", n)
	}
	now = now.Add(2 * time.Second)
	if n := wc.hit("a", time.Second); n != 1 {
		t.Fatalf("count after window = %d", n)
	}
}

func TestSimpleRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/x", SimpleRateLimit(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if seen != "abc" || w.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("propagated id = %q header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen == "" || seen == "abc" || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id = %q", seen)
	}
}
