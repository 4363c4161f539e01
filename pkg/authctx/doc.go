// Package authctx はリクエストスコープのセキュリティコンテキストと
// パスベースの認可ルールを提供する。
//
// セキュリティコンテキストはGinのリクエストコンテキスト上にのみ存在し、
// リクエストごとに未認証状態から開始され、認証フィルタが高々一度だけ
// 書き換える。プロセス全体で共有される可変状態は持たないため、
// リクエスト間で認証情報が漏れることは構造上起こりえない。
//
// 認可ルールは宣言順に評価され、最初に一致したルールが勝つ。
// どのルールにも一致しないパスは常に拒否される（フェイルクローズ）。
package authctx
