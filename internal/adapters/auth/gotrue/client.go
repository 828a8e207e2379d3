package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"med-adherence-tracker/internal/platform/httpclient"
	"med-adherence-tracker/internal/ports/auth"
)

var (
	ErrGotrueNotConfigured = errors.New("gotrue client not configured")
	ErrGotrueUnauthorized  = errors.New("gotrue unauthorized")
	ErrGotrueUpstream      = errors.New("gotrue upstream error")
)

// Config del cliente GoTrue (el servicio de auth de Supabase).
// BaseURL y APIKey normalmente vendrán de env vars en el servicio que lo
// instancie. JWTSecret habilita verificación local sin round-trip (ver
// verifier.go).
type Config struct {
	BaseURL string
	APIKey  string

	// Secreto HS256 del proyecto. Opcional: si está, Verify no llama a la
	// red salvo que el parse local falle por otra razón que expiración.
	JWTSecret string

	// Timeout HTTP.
	Timeout time.Duration
}

type Client struct {
	http      *httpclient.Client
	apiKey    string
	jwtSecret string
}

func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:      hc,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		jwtSecret: strings.TrimSpace(cfg.JWTSecret),
	}, nil
}

func (c *Client) IsConfigured() bool {
	if c == nil {
		return false
	}
	// Alcanza con el secreto (modo local) o con base+key (modo remoto).
	return c.jwtSecret != "" || (c.http.BaseURL != "" && c.apiKey != "")
}

// gotrueUser es el subset que nos interesa de GET /auth/v1/user.
type gotrueUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Role string `json:"role"`
	} `json:"user_metadata"`
}

// GetUser valida el access token contra GoTrue y trae el usuario.
func (c *Client) GetUser(ctx context.Context, token string) (auth.Claims, error) {
	if c == nil || c.http == nil || c.http.BaseURL == "" || c.apiKey == "" {
		return auth.Claims{}, ErrGotrueNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrGotrueUnauthorized
	}

	var out gotrueUser
	err := c.http.DoJSON(ctx, http.MethodGet, "/auth/v1/user", map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + token,
	}, nil, &out)
	if err != nil {
		var he *httpclient.HTTPError
		if errors.As(err, &he) {
			if he.StatusCode == http.StatusUnauthorized || he.StatusCode == http.StatusForbidden {
				return auth.Claims{}, ErrGotrueUnauthorized
			}
			return auth.Claims{}, fmt.Errorf("%w: status=%d", ErrGotrueUpstream, he.StatusCode)
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrGotrueUpstream, err)
	}

	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return auth.Claims{}, errors.New("gotrue response missing user id")
	}

	return auth.Claims{
		UserID: out.ID,
		Email:  strings.TrimSpace(out.Email),
		Role:   strings.TrimSpace(out.UserMetadata.Role),
	}, nil
}
