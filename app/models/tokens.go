package models

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/jwtauth"
	"github.com/pkg/errors"
)

const (
	accessTokenExpiresIn = time.Hour * 24

	claimAccount = "account"
	claimExp     = "exp"
)

type TokenEncoder interface {
	Encode(claims jwtauth.Claims) (t *jwt.Token, tokenString string, err error)
}

// AccessToken binds API calls to the account that was connected when it was issued.
type AccessToken struct {
	Account   string
	ExpiresAt time.Time
}

func NewAccessToken(account string) *AccessToken {
	return &AccessToken{
		Account:   account,
		ExpiresAt: time.Now().Add(accessTokenExpiresIn),
	}
}

func AccessTokenFromContext(ctx context.Context) (*AccessToken, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve an access token from a context")
	}

	account, ok := claims[claimAccount].(string)
	if !ok || account == "" {
		return nil, errors.New("empty account claim")
	}

	exp, ok := claims[claimExp].(float64)
	if !ok || exp == 0 {
		return nil, errors.New("empty exp claim")
	}

	return &AccessToken{
		Account:   account,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

func (t *AccessToken) Encode(encoder TokenEncoder) (string, error) {
	_, tokenString, err := encoder.Encode(jwtauth.Claims{
		claimAccount: t.Account,
		claimExp:     t.ExpiresAt.Unix(),
	})
	return tokenString, errors.Wrap(err, "failed to encode a jwt")
}
