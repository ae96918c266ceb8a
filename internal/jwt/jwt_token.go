package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatforge-backend/utils"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNoRefreshStore      = errors.New("refresh token store not configured")
)

func roleChar(role Role) string {
	switch role {
	case RoleTenant:
		return "1"
	case RoleAdmin:
		return "2"
	}
	return ""
}

func splitRoleChar(token string, role Role) (string, bool) {
	want := roleChar(role)
	if want == "" || len(token) < 2 || token[len(token)-1:] != want {
		return "", false
	}
	return token[:len(token)-1], true
}

// CreateToken signs an access token for user. validUntil of 0 uses AccessTokenTTL.
func CreateToken(user User, role Role, validUntil int64) (string, error) {
	secret, ok := RoleSecrets[role]
	if !ok || secret == "" {
		return "", fmt.Errorf("invalid role specified")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(AccessTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString + roleChar(role), nil
}

// CreateTokenWithRefresh issues an access token and, when a refresh store is
// configured, a refresh token. Without a store only the access token is set.
func CreateTokenWithRefresh(ctx context.Context, user User, role Role) (TokenResponse, error) {
	accessToken, err := CreateToken(user, role, 0)
	if err != nil {
		return TokenResponse{}, err
	}
	if refreshStore == nil {
		return TokenResponse{AccessToken: accessToken}, nil
	}

	refreshTokenRaw := utils.CreateToken()
	if err := refreshStore.Save(ctx, refreshTokenRaw, user, RefreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw + roleChar(role),
	}, nil
}

// ParseToken validates the role suffix and signature of an access token.
func ParseToken(tokenString string, role Role) (jwt.MapClaims, error) {
	raw, ok := splitRoleChar(tokenString, role)
	if !ok {
		return nil, fmt.Errorf("%w: role mismatch", ErrInvalidToken)
	}

	secret, ok := RoleSecrets[role]
	if !ok || secret == "" {
		return nil, fmt.Errorf("invalid role specified")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: claims of unexpected type", ErrInvalidToken)
	}

	return claims, nil
}

// ParseUser parses an access token and returns the subject it was issued to.
func ParseUser(tokenString string, role Role) (User, error) {
	claims, err := ParseToken(tokenString, role)
	if err != nil {
		return User{}, err
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return User{ID: id, Email: email}, nil
}

// RefreshToken exchanges a refresh token for a new access token and extends
// the refresh token's lifetime.
func RefreshToken(ctx context.Context, refreshToken string, role Role) (string, error) {
	if refreshStore == nil {
		return "", ErrNoRefreshStore
	}
	raw, ok := splitRoleChar(refreshToken, role)
	if !ok {
		return "", ErrInvalidRefreshToken
	}

	user, err := refreshStore.Load(ctx, raw)
	if err != nil {
		return "", err
	}

	if err := refreshStore.Touch(ctx, raw, RefreshTokenTTL); err != nil {
		return "", fmt.Errorf("failed to update refresh token expiration: %w", err)
	}

	return CreateToken(user, role, 0)
}

// RevokeRefreshToken deletes the refresh token. Unknown tokens are ignored.
func RevokeRefreshToken(ctx context.Context, refreshToken string, role Role) error {
	if refreshStore == nil {
		return ErrNoRefreshStore
	}
	raw, ok := splitRoleChar(refreshToken, role)
	if !ok {
		return ErrInvalidRefreshToken
	}
	return refreshStore.Revoke(ctx, raw)
}
