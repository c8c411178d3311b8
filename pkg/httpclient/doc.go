// Package httpclient は下流APIとのHTTP通信を行うクライアントを提供する。
//
// JSONボディの送受信、追加ヘッダーの付与、リクエストIDの伝播を統一する。
// 2xx以外の応答はStatusErrorとして返し、ステータスとボディの扱いは呼び出し側に委ねる。
package httpclient
