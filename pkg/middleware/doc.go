// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 共有シークレットによるBearer認証、リクエストIDの付与、zapによるアクセスログ、
// パニックリカバリ、CORS設定など、リレーサーバーで使用するミドルウェアを含む。
package middleware
