// Package token は署名付きベアラートークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTであり、認証済みユーザーの識別子と
// 権限リストを自己完結的に保持する。サーバー側にセッション記録は
// 一切持たず、署名済み文字列そのものが唯一の永続表現となる。
// 発行と検証は同一の共有秘密鍵を使用する対称方式。
package token
