package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid join token")
	ErrNoNickname   = errors.New("token has no nickname claim")
)

// Claims は参加トークンのペイロードです。
type Claims struct {
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// Verifier は参加トークンの検証器です。HMAC署名のみ受け付けます。
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify はトークンを検証してニックネームを取り出します。
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Nickname == "" {
		return nil, ErrNoNickname
	}
	return claims, nil
}

// Issue はニックネームに対する参加トークンを発行します。
func (v *Verifier) Issue(nickname string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
