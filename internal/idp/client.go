// Package idp es el cliente del identity provider externo: construcción de
// la authorization URL, canje code->tokens y userinfo. El provider en sí
// (realm discovery, pantallas de login, emisión de tokens) es un colaborador
// externo; acá sólo vive su contrato HTTP.
package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/ssogate/internal/security/pkce"
)

// Config del cliente OAuth2 de la aplicación (no el de management).
type Config struct {
	// Domain del provider. Sin scheme se asume https.
	Domain       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type Client struct {
	cfg   Config
	base  string
	oauth oauth2.Config
	http  *http.Client
}

// AuthorizeOptions son hints opcionales de ruteo. Su ausencia nunca bloquea
// el login: el provider cae a home-realm discovery.
type AuthorizeOptions struct {
	LoginHint    string
	Connection   string
	Organization string
	Invitation   string
}

// Tokens es el resultado del canje de código.
type Tokens struct {
	AccessToken string
	IDToken     string
	ExpiresAt   time.Time
}

// UserInfo son los claims del endpoint userinfo.
type UserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
}

// New construye el cliente. httpClient puede ser nil (http.DefaultClient).
func New(cfg Config, httpClient *http.Client) *Client {
	base := BaseURL(cfg.Domain)
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		base: base,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http: httpClient,
	}
}

// BaseURL normaliza un domain a URL base (https por default).
func BaseURL(domain string) string {
	d := strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.Contains(d, "://") {
		return d
	}
	return "https://" + d
}

// AuthorizationURL arma la URL del endpoint /authorize con los parámetros
// PKCE del flujo y los hints opcionales. Determinística respecto de sus
// entradas.
func (c *Client) AuthorizationURL(f *pkce.Flow, opts AuthorizeOptions) string {
	params := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", f.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if opts.LoginHint != "" {
		params = append(params, oauth2.SetAuthURLParam("login_hint", opts.LoginHint))
	}
	if opts.Connection != "" {
		params = append(params, oauth2.SetAuthURLParam("connection", opts.Connection))
	}
	if opts.Organization != "" {
		params = append(params, oauth2.SetAuthURLParam("organization", opts.Organization))
	}
	if opts.Invitation != "" {
		params = append(params, oauth2.SetAuthURLParam("invitation", opts.Invitation))
	}
	return c.oauth.AuthCodeURL(f.State, params...)
}

// ExchangeCode canjea el authorization code por tokens usando el verifier.
// En fallas devuelve *TokenExchangeError con el body upstream (sólo logs).
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, newTokenExchangeError(err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	return &Tokens{
		AccessToken: tok.AccessToken,
		IDToken:     idToken,
		ExpiresAt:   tok.Expiry,
	}, nil
}

// FetchUserInfo consulta /userinfo con el access token recién canjeado.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UserInfoError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UserInfoError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var ui UserInfo
	if err := json.Unmarshal(body, &ui); err != nil {
		return nil, &UserInfoError{StatusCode: resp.StatusCode, Err: err}
	}
	return &ui, nil
}

// LogoutURL arma la URL de logout del provider con retorno post-logout.
func (c *Client) LogoutURL(returnTo string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("returnTo", returnTo)
	return c.base + "/v2/logout?" + q.Encode()
}

// TokenExchangeError es una respuesta no exitosa del endpoint de token.
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func newTokenExchangeError(err error) *TokenExchangeError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &TokenExchangeError{StatusCode: status, Body: string(re.Body), Err: err}
	}
	return &TokenExchangeError{Err: err}
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("idp: token exchange failed: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("idp: token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// UserInfoError es una respuesta no exitosa del endpoint userinfo.
type UserInfoError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UserInfoError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("idp: userinfo failed: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("idp: userinfo failed: %v", e.Err)
}

func (e *UserInfoError) Unwrap() error { return e.Err }
