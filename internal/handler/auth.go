package handler

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/team-calendar/backend/internal/domain"
)

const tokenCookieName = "__ecnc_team_calendar_token"

// AuthClaims 的 Subject 是用户名
type AuthClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

func (h *Handler) parseToken(tokenString string) (*domain.Principal, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.config.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("令牌中缺少用户名")
	}

	principal := &domain.Principal{
		Username:    claims.Subject,
		Permissions: make([]domain.Permission, len(claims.Permissions)),
	}
	for i, perm := range claims.Permissions {
		principal.Permissions[i] = domain.Permission(perm)
	}

	return principal, nil
}
