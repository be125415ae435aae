package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTokenEndpoint cuenta los grants y emite tokens secuenciales con el
// expires_in dado.
func fakeTokenEndpoint(t *testing.T, expiresIn int, grants *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Form.Get("audience"); got != "https://api/" {
			t.Errorf("audience = %q", got)
		}
		n := grants.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + strconv.FormatInt(n, 10),
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenProvider_CachesUntilMargin(t *testing.T) {
	var grants atomic.Int64
	srv := fakeTokenEndpoint(t, 3600, &grants) // expira en T+3600
	defer srv.Close()

	p := NewTokenProvider(srv.URL, "cid", "secret", "https://api/", srv.Client())
	base := time.Now()
	now := base
	p.now = func() time.Time { return now }

	tok1, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("first Token: %v", err)
	}
	if grants.Load() != 1 {
		t.Fatalf("grants = %d, want 1", grants.Load())
	}

	// T+3000: quedan 600s > margen de 300 => mismo token, sin grant nuevo
	now = base.Add(3000 * time.Second)
	tok2, err := p.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok2 != tok1 {
		t.Fatalf("token changed within margin: %q vs %q", tok2, tok1)
	}
	if grants.Load() != 1 {
		t.Fatalf("grants = %d, want 1", grants.Load())
	}

	// T+3400: quedan 200s < margen => refresh forzado
	now = base.Add(3400 * time.Second)
	tok3, err := p.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok3 == tok1 {
		t.Fatal("expected refreshed token inside expiry margin")
	}
	if grants.Load() != 2 {
		t.Fatalf("grants = %d, want 2", grants.Load())
	}
}

func TestTokenProvider_SingleFlight(t *testing.T) {
	var grants atomic.Int64
	srv := fakeTokenEndpoint(t, 3600, &grants)
	defer srv.Close()

	p := NewTokenProvider(srv.URL, "cid", "secret", "https://api/", srv.Client())

	const callers = 16
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got different token", i)
		}
	}
	// todos los callers concurrentes comparten un único grant
	if grants.Load() != 1 {
		t.Fatalf("grants = %d, want 1", grants.Load())
	}
}

func TestTokenProvider_GrantFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"access_denied"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewTokenProvider(srv.URL, "cid", "bad", "https://api/", srv.Client())
	if _, err := p.Token(context.Background()); err == nil {
		t.Fatal("expected error from failed grant")
	}
}
