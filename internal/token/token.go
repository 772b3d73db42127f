package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示令牌签名无效、格式错误或已过期。
var ErrInvalidToken = errors.New("invalid token")

// Manager 负责签发与校验访问令牌。
//
// 令牌为 HS256 签名的 JWT，Subject 中携带用户 ID，
// 有效期固定为签发后 24 小时。服务端不保存令牌，
// 过期是其唯一的失效方式。
type Manager struct {
	secret []byte
	ttl    time.Duration
}

type accessClaims struct {
	jwt.RegisteredClaims
}

// NewManager 创建令牌管理器。
func NewManager(secret string) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    24 * time.Hour,
	}
}

// Issue 为指定用户签发访问令牌。
func (m *Manager) Issue(uid uint) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(uid), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify 校验令牌并返回其中的用户 ID。
//
// 签名不匹配、令牌格式错误或已过期时返回 ErrInvalidToken，
// 不区分具体原因。
func (m *Manager) Verify(tokenStr string) (uint, error) {
	claims := &accessClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	if claims.Subject == "" {
		return 0, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(uid), nil
}
