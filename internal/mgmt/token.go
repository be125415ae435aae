package mgmt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/ssogate/internal/metrics"
)

// expiryMargin: nunca devolvemos un token a menos de 300s de su expiración
// real; antes de eso se fuerza un refresh.
const expiryMargin = 300 * time.Second

const tokenKey = "mgmt_token"

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenProvider es el cache process-wide del token client-credentials para
// la management API. El refresh es single-flight: callers concurrentes
// durante un refresh esperan el mismo resultado en vez de disparar canjes
// independientes.
type TokenProvider struct {
	cc   clientcredentials.Config
	http *http.Client

	mu  sync.RWMutex
	cur *cachedToken
	sf  singleflight.Group
	now func() time.Time
}

// NewTokenProvider arma el provider contra <base>/oauth/token con grant
// client_credentials y audience de la management API.
func NewTokenProvider(baseURL, clientID, clientSecret, audience string, httpClient *http.Client) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenProvider{
		cc: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInParams,
			EndpointParams: url.Values{
				"audience": {audience},
			},
		},
		http: httpClient,
		now:  time.Now,
	}
}

// Token devuelve un token válido por al menos expiryMargin. Si el cacheado
// está dentro del margen (o no hay), hace un grant nuevo.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	v, err, _ := p.sf.Do(tokenKey, func() (any, error) {
		// Re-chequeo dentro del vuelo: otro caller pudo haberlo refrescado.
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		cctx := context.WithValue(ctx, oauth2.HTTPClient, p.http)
		tok, err := p.cc.Token(cctx)
		if err != nil {
			return "", fmt.Errorf("mgmt: client credentials grant: %w", err)
		}
		p.mu.Lock()
		p.cur = &cachedToken{token: tok.AccessToken, expiresAt: tok.Expiry}
		p.mu.Unlock()
		metrics.MgmtTokenRefreshes.Inc()
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur == nil {
		return "", false
	}
	if !p.now().Before(p.cur.expiresAt.Add(-expiryMargin)) {
		return "", false
	}
	return p.cur.token, true
}
