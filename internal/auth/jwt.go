package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campustrack/internal/access"
	"campustrack/internal/model"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents the JWT payload. Role and scope attributes travel in the
// token so the access gate never needs a user lookup.
type Claims struct {
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts claims to the access-gate identity.
func (c Claims) Identity() access.Identity {
	return access.Identity{
		UserID:     c.Subject,
		Name:       c.Name,
		Email:      c.Email,
		Role:       model.Role(c.Role),
		Department: c.Department,
		ClassName:  c.ClassName,
	}
}

// Issue issues signed access and refresh tokens for a user.
func Issue(u *model.User, issuer, key string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	accessExp := time.Now().Add(accessTTL)
	refreshExp := time.Now().Add(refreshTTL)

	build := func(exp time.Time) Claims {
		return Claims{
			Name:       u.Name,
			Role:       string(u.Role),
			Department: u.Department,
			ClassName:  u.ClassName,
			Email:      u.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   u.ID,
				ExpiresAt: jwt.NewNumericDate(exp),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, build(accessExp)).SignedString([]byte(key))
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, build(refreshExp)).SignedString([]byte(key))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
