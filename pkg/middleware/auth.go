package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/authgate/pkg/authctx"
	"github.com/nao1215/authgate/pkg/httpclient"
)

// HeaderAuthorization はベアラートークンを運ぶリクエストヘッダー名。
const HeaderAuthorization = "Authorization"

// headerValuePrefix はAuthorizationヘッダーのスキームラベル。
const headerValuePrefix = "Bearer "

// TokenVerifier はトークン検証の呼び出し先を表すインターフェース。
// 本番ではhttpclient.Verifier（認証サービスへのネットワーク呼び出し）を
// 使用し、テストではスタブに差し替える。
type TokenVerifier interface {
	// Verify はトークンを検証し、subjectと権限リストを返す。
	Verify(ctx context.Context, tokenString string) (subject string, authorities []string, err error)
}

// Authentication はリクエストごとに一度だけ実行される認証フィルタを返す。
//
// Authorizationヘッダーが無ければ未認証のまま通過させる。ヘッダーが
// あればBearer接頭辞を除去し、verifierで検証する。成功時はセキュリティ
// コンテキストを設定し、失敗時（署名不正・期限切れ・形式不正・接続失敗・
// タイムアウト・不正レスポンス）はすべてコンテキストを未認証に戻す。
// 失敗理由はクライアントに区別して返さない。
//
// このフィルタ自身はリクエストを終了させず、常に後続へ処理を渡す。
// 拒否の判断はAuthorizationミドルウェアが行う。検証の試行は1リクエスト
// につき一度きりで、リトライはしない。
func Authentication(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(HeaderAuthorization)
		if header != "" {
			// 接頭辞が無い値もそのまま検証へ回す。不正なら未認証に落ちる。
			tokenString, _ := strings.CutPrefix(header, headerValuePrefix)
			authenticate(c, verifier, tokenString)
		}
		c.Next()
	}
}

// authenticate は1件のトークン検証を行い、結果をコンテキストへ反映する。
// 検証中にパニックが起きた場合も、コンテキストを未認証に戻した上で
// リクエストの処理を続行させる。
func authenticate(c *gin.Context, verifier TokenVerifier, tokenString string) {
	defer func() {
		if r := recover(); r != nil {
			authctx.Clear(c)
			log.Printf("トークン検証中にパニックが発生: %v", r)
		}
	}()

	subject, authorities, err := verifier.Verify(c.Request.Context(), tokenString)
	if err != nil {
		// 前リクエストの認証情報が残らないよう、失敗経路では必ず消す
		authctx.Clear(c)
		if errors.Is(err, httpclient.ErrUnreachable) {
			log.Printf("認証サービスに到達できないため未認証として扱う: %v", err)
		}
		return
	}
	authctx.Set(c, subject, authorities)
}

// Authorization は認可ルールを評価するミドルウェアを返す。
// 認証フィルタの後段に配置すること。ルールに宣言順で照合し、最初に
// 一致したルールが許可しなければ401を返す。一致するルールが無い
// パスも401となる（フェイルクローズ）。拒否応答に内部状態の詳細は
// 含めない。
func Authorization(rules authctx.Rules) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, authenticated := authctx.Get(c)
		if !rules.Allows(c.Request.URL.Path, sc, authenticated) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "認証が必要です",
			})
			return
		}
		c.Next()
	}
}
