package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessClaims 短效令牌，带够身份信息可以少查一次库；
// 资料改名后令牌里的值会旧，到期自然换新，可接受
type AccessClaims struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	jwt.RegisteredClaims
}

// RefreshClaims 长效令牌只带 uid，暴露面最小
type RefreshClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Issuer 双令牌签发/校验，access 与 refresh 各用各的密钥和有效期
type Issuer struct {
	Iss           string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Identity struct {
	ID       string
	Email    string
	Username string
	Fullname string
}

func (i *Issuer) IssueAccess(id Identity) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UID:      id.ID,
		Email:    id.Email,
		Username: id.Username,
		Fullname: id.Fullname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Iss,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.AccessSecret)
}

func (i *Issuer) IssueRefresh(uid string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Iss,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.RefreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
}

func (i *Issuer) ParseAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(tokenStr, &claims, i.AccessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (i *Issuer) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(tokenStr, &claims, i.RefreshSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func (i *Issuer) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return secret, nil
	}, jwt.WithIssuer(i.Iss), jwt.WithLeeway(60*time.Second))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case err != nil:
		return ErrTokenInvalid
	case !t.Valid:
		return ErrTokenInvalid
	}
	return nil
}
