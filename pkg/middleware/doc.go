// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ベアラートークンの認証フィルタ、パスベースの認可判定、パニックリカバリ、
// CORS設定など、ゲートウェイと認証サービスで共通して使用するミドルウェアを含む。
// 認証フィルタはリクエストを終了させず、拒否の判断は認可ミドルウェアに
// 一元化されている。
package middleware
