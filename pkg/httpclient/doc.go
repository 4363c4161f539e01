// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// ゲートウェイが認証サービスのトークン検証APIを呼び出す際に使用する。
// すべての呼び出しは有界のタイムアウトを持ち、呼び出し元のコンテキストが
// キャンセルされた場合は進行中のリクエストも中断される。
package httpclient
