package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bearerScheme は受信リクエストのAuthorizationヘッダーのスキーム。
const bearerScheme = "Bearer "

// MatchBearer はAuthorizationヘッダーの値が "Bearer <secret>" とバイト単位で一致するかを返す。
// 比較は定数時間で行う。secretが空の場合は常に不一致とする。
func MatchBearer(authHeader, secret string) bool {
	if secret == "" {
		return false
	}
	expected := bearerScheme + secret
	return subtle.ConstantTimeCompare([]byte(authHeader), []byte(expected)) == 1
}

// SharedSecretAuth は共有シークレットによるBearer認証を行うGinミドルウェアを返す。
// 一致しない場合は理由を返さずに401で打ち切る。
func SharedSecretAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !MatchBearer(c.GetHeader("Authorization"), secret) {
			c.Abort()
			c.String(http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}
