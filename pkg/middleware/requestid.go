package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/signup-relay/pkg/httpclient"
)

// contextKeyRequestID はGinコンテキストにリクエストIDを格納するキー。
const contextKeyRequestID = "request_id"

// RequestID はリクエストごとに一意なIDを付与するGinミドルウェアを返す。
// 受信ヘッダーに妥当なX-Request-IDがあればそれを使い、なければUUIDを生成する。
// IDはレスポンスヘッダーに設定し、下流呼び出しに伝播するためリクエストのコンテキストにも格納する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(httpclient.HeaderRequestID)
		if !isValidRequestID(id) {
			id = uuid.New().String()
		}

		c.Set(contextKeyRequestID, id)
		c.Header(httpclient.HeaderRequestID, id)
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
// RequestIDミドルウェアが事前に適用されていない場合は空文字列を返す。
func GetRequestID(c *gin.Context) string {
	id, _ := c.Get(contextKeyRequestID)
	if s, ok := id.(string); ok {
		return s
	}
	return ""
}

// isValidRequestID はidが空でなく128バイト以内の印字可能ASCIIのみで構成されているかを返す。
func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}
