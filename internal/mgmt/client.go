// Package mgmt es el cliente de la management API del identity provider
// (organizaciones, miembros, invitaciones, alta de usuarios), autenticado
// con un token client-credentials cacheado process-wide.
//
// Política de errores: los endpoints de lectura devuelven el error al caller
// para que éste degrade a colección vacía (logueando); las mutaciones deben
// propagar la falla para que el request que las disparó la reporte.
package mgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Organization es data de referencia del provider: se consulta on demand y
// no se cachea más allá del request.
type Organization struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Branding    *Branding      `json:"branding,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type Branding struct {
	LogoURL string            `json:"logo_url,omitempty"`
	Colors  map[string]string `json:"colors,omitempty"`
}

// Member es un miembro de una organización según el provider.
type Member struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// CreateUserParams son los datos de alta de usuario en el provider.
type CreateUserParams struct {
	Email                 string
	Name                  string
	Password              string // opcional: sin password se emite ticket de cambio
	OrganizationID        string
	SendVerificationEmail bool
}

// APIError es una respuesta no-2xx de la management API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mgmt: api error: status=%d", e.StatusCode)
}

// Client habla con <base>/api/v2/.
type Client struct {
	base     string
	clientID string // client de la aplicación, viaja en invitaciones y tickets
	tokens   *TokenProvider
	http     *http.Client
}

func NewClient(baseURL, appClientID string, tokens *TokenProvider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base:     baseURL + "/api/v2/",
		clientID: appClientID,
		tokens:   tokens,
		http:     httpClient,
	}
}

// ListUserOrganizations lista las organizaciones a las que pertenece el user.
func (c *Client) ListUserOrganizations(ctx context.Context, userID string) ([]Organization, error) {
	var orgs []Organization
	err := c.do(ctx, http.MethodGet, "users/"+url.PathEscape(userID)+"/organizations", nil, &orgs)
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetOrganization trae una organización por id.
func (c *Client) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	var org Organization
	if err := c.do(ctx, http.MethodGet, "organizations/"+url.PathEscape(orgID), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// ListOrganizationMembers lista los miembros de una organización.
func (c *Client) ListOrganizationMembers(ctx context.Context, orgID string) ([]Member, error) {
	var members []Member
	err := c.do(ctx, http.MethodGet, "organizations/"+url.PathEscape(orgID)+"/members", nil, &members)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// InviteMember envía una invitación por email a una organización.
func (c *Client) InviteMember(ctx context.Context, orgID, inviterName, inviteeEmail string) error {
	body := map[string]any{
		"inviter":               map[string]string{"name": inviterName},
		"invitee":               map[string]string{"email": inviteeEmail},
		"client_id":             c.clientID,
		"send_invitation_email": true,
	}
	return c.do(ctx, http.MethodPost, "organizations/"+url.PathEscape(orgID)+"/invitations", body, nil)
}

// AddMember agrega un usuario existente a una organización.
func (c *Client) AddMember(ctx context.Context, orgID, userID string) error {
	body := map[string]any{"members": []string{userID}}
	return c.do(ctx, http.MethodPost, "organizations/"+url.PathEscape(orgID)+"/members", body, nil)
}

// RemoveMember saca a un usuario de una organización.
func (c *Client) RemoveMember(ctx context.Context, orgID, userID string) error {
	path := "organizations/" + url.PathEscape(orgID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CreateUser da de alta un usuario en el provider, lo agrega a la org y, si
// no vino password, emite un ticket de cambio de password (TTL 24h).
func (c *Client) CreateUser(ctx context.Context, p CreateUserParams) (string, error) {
	createBody := map[string]any{
		"email":          p.Email,
		"name":           p.Name,
		"connection":     "Username-Password-Authentication",
		"email_verified": false,
		"verify_email":   p.SendVerificationEmail,
	}
	if p.Password != "" {
		createBody["password"] = p.Password
	}
	var created struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "users", createBody, &created); err != nil {
		return "", err
	}

	if err := c.AddMember(ctx, p.OrganizationID, created.UserID); err != nil {
		return "", err
	}

	if p.Password == "" {
		ticketBody := map[string]any{
			"user_id":                created.UserID,
			"client_id":              c.clientID,
			"mark_email_as_verified": true,
			"ttl_sec":                86400,
		}
		if err := c.do(ctx, http.MethodPost, "tickets/password-change", ticketBody, nil); err != nil {
			return "", err
		}
	}
	return created.UserID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("mgmt: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
