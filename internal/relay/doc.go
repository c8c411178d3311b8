// Package relay はサインアップイベントをGhostのメンバー作成に中継する
// HTTPサーバーの内部実装を提供する。
//
// 受信リクエストを共有シークレットで認証し、ペイロードを検証したうえで、
// Admin APIキーから短命のトークンを発行してGhost Admin APIを1回だけ呼び出す。
// 各段階は Outcome を返す直列のパイプラインとして構成し、失敗した段階で即座に
// 終端の応答を返す。リクエストをまたぐ可変状態は持たない。
package relay
