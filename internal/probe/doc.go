// Package probe はデプロイ済みのリレーエンドポイントに
// サンプルのサインアップイベントを1件送信する診断ツールを実装する。
package probe
