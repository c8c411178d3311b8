// Package ghostadmin はGhost Admin APIを呼び出すための認証トークン発行と
// メンバー作成クライアントを提供する。
//
// Admin APIキー（"id:secret-hex" 形式）からHS256で署名した短命のJWTを
// リクエストごとに発行し、メンバー作成エンドポイントへの呼び出しに付与する。
// トークンはキャッシュせず、1回の呼び出しで使い捨てる。
package ghostadmin
