// Package auth は認証サービスの内部実装を提供する。
//
// ユーザー名とパスワードによる資格情報の検証、署名付きトークンの発行、
// およびゲートウェイから委譲されるトークン検証を担当する。署名鍵を
// 保持する唯一のサービスであり、トークンの発行と検証はどちらも
// このプロセス内で完結する。発行済みトークンの記録は持たない。
package auth
