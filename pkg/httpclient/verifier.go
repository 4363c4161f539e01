package httpclient

import (
	"context"
	"fmt"
	"time"
)

// jwtParseRequest はトークン検証APIのリクエストJSON構造。
type jwtParseRequest struct {
	// Token は検証対象のトークン文字列。
	Token string `json:"token"`
}

// jwtParseResponse はトークン検証APIのレスポンスJSON構造。
type jwtParseResponse struct {
	// Username は検証済みトークンのsubject。
	Username string `json:"username"`
	// Authorities は検証済みトークンに含まれる権限名のリスト。
	Authorities []string `json:"authorities"`
}

// Verifier は認証サービスのトークン検証APIを呼び出すクライアント。
// ゲートウェイは署名鍵を保持しないため、検証は常にネットワーク越しに
// 認証サービスへ委譲する。1リクエストにつき検証は一度きりで、
// 失敗時のリトライは行わない。
type Verifier struct {
	// client は認証サービスへのHTTPクライアント。
	client *Client
}

// NewVerifier は認証サービスのベースURLからVerifierを生成する。
// timeoutには検証呼び出し全体の上限時間を指定する。
func NewVerifier(authServiceURL string, timeout time.Duration) *Verifier {
	return &Verifier{
		client: NewWithTimeout(authServiceURL, timeout),
	}
}

// Verify はトークンを認証サービスに送信して検証する。
// 成功時はsubjectと権限リストを返す。接続失敗・タイムアウト・非2xx・
// 不正なレスポンスはすべてエラーとして返し、判断は呼び出し元に委ねる。
// subjectが空のレスポンスは不正とみなす。
func (v *Verifier) Verify(ctx context.Context, tokenString string) (string, []string, error) {
	var resp jwtParseResponse
	if err := v.client.PostJSON(ctx, "/v1/jwt/parse", jwtParseRequest{Token: tokenString}, &resp); err != nil {
		return "", nil, fmt.Errorf("トークン検証の呼び出しに失敗: %w", err)
	}
	if resp.Username == "" {
		return "", nil, fmt.Errorf("トークン検証のレスポンスが不正: usernameが空")
	}
	return resp.Username, resp.Authorities, nil
}
