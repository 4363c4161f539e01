// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。すべてのリクエストに対して認証フィルタを一度だけ適用し、
// ベアラートークンの検証を認証サービスへネットワーク越しに委譲する。
// 検証結果はリクエストスコープのセキュリティコンテキストに反映され、
// パスベースの認可ルールが許可したリクエストのみを内部サービスへ
// 転送する。ゲートウェイ自身は署名鍵もセッション状態も保持しない。
package gateway
