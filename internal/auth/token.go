package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// methodWalletSignature 记录令牌通过钱包签名挑战获得。
const methodWalletSignature = "wallet-signature"

// tokenClaims 定义 Bearer Token 的声明结构。
type tokenClaims struct {
	jwt.RegisteredClaims
	Methods []string `json:"amr,omitempty"`
}

// tokenManager 负责令牌的签名与校验。
type tokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// issue 为身份签发 HS256 令牌。
func (m *tokenManager) issue(identity string, now time.Time) (*Token, error) {
	expiresAt := now.Add(m.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Methods: []string{methodWalletSignature},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(m.ttl.Seconds()),
		ExpiresAt:   expiresAt.UTC(),
		Identity:    identity,
	}, nil
}

// verify 校验签名、过期时间与签发方。
func (m *tokenManager) verify(raw string) (*Identity, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return nil, errors.New("unexpected issuer")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	identity := &Identity{
		Address: claims.Subject,
		Methods: append([]string(nil), claims.Methods...),
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
