package gotrue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"med-adherence-tracker/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenEmpty = errors.New("token is empty")
)

// Verifier implementa auth.AuthVerifier usando GoTrue.
// Con JWTSecret configurado los tokens se verifican localmente (HS256,
// como los firma Supabase); sin secreto se delega en GET /auth/v1/user.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrGotrueNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	if v.client.jwtSecret != "" {
		return v.verifyLocal(token)
	}

	claims, err := v.client.GetUser(ctx, token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("gotrue verify failed: %w", err)
	}
	return claims, nil
}

// supabaseClaims: los JWT de GoTrue llevan el user id en sub, el email
// como claim plano y los metadata del usuario anidados.
type supabaseClaims struct {
	jwt.RegisteredClaims
	Email        string `json:"email"`
	UserMetadata struct {
		Role string `json:"role"`
	} `json:"user_metadata"`
}

func (v *Verifier) verifyLocal(token string) (auth.Claims, error) {
	var sc supabaseClaims

	_, err := jwt.ParseWithClaims(token, &sc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.client.jwtSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrGotrueUnauthorized, err)
	}

	sub := strings.TrimSpace(sc.Subject)
	if sub == "" {
		return auth.Claims{}, errors.New("gotrue token missing sub")
	}

	return auth.Claims{
		UserID: sub,
		Email:  strings.TrimSpace(sc.Email),
		Role:   strings.TrimSpace(sc.UserMetadata.Role),
	}, nil
}
