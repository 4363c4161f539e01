package gateway

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/authgate/pkg/authctx"
	"github.com/nao1215/authgate/pkg/httpclient"
	"github.com/nao1215/authgate/pkg/middleware"
)

// verifyTimeout は認証サービスへのトークン検証呼び出しの上限時間。
// 超過した場合は検証失敗と同様に未認証として扱い、リクエストを
// 待たせ続けない。
const verifyTimeout = 5 * time.Second

// headerKeyUser は内部サービスへ認証済みsubjectを伝播するヘッダー名。
const headerKeyUser = "X-User"

// headerKeyAuthorities は内部サービスへ権限リストを伝播するヘッダー名。
const headerKeyAuthorities = "X-Authorities"

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// verifier はトークン検証の呼び出し先。
	verifier middleware.TokenVerifier
	// rules は起動時に読み込まれる認可ルール。以後は読み取り専用。
	rules authctx.Rules
	// serviceURLs は内部サービスのURL。
	serviceURLs serviceURLConfig
}

// serviceURLConfig は内部サービスのURL設定。
type serviceURLConfig struct {
	// Auth は認証サービスのベースURL。
	Auth string
	// App は保護対象の業務サービスのベースURL。
	App string
}

// NewServer は新しいGatewayサーバーを生成する。
// 認可ルールは環境変数GATEWAY_RULESから読み込み、未設定の場合は
// デフォルトのルール表を使用する。
func NewServer(port string) (*Server, error) {
	urls := serviceURLConfig{
		Auth: getEnvOr("AUTH_URL", "http://localhost:8081"),
		App:  getEnvOr("APP_URL", "http://localhost:8082"),
	}

	rules := defaultRules()
	if raw := os.Getenv("GATEWAY_RULES"); raw != "" {
		parsed, err := authctx.ParseRules(raw)
		if err != nil {
			return nil, fmt.Errorf("認可ルールの読み込みに失敗: %w", err)
		}
		rules = parsed
	}

	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:      router,
		port:        port,
		verifier:    httpclient.NewVerifier(urls.Auth, verifyTimeout),
		rules:       rules,
		serviceURLs: urls,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// defaultRules はデフォルトの認可ルール表を返す。
// ログイン経路とヘルスチェックのみ匿名アクセスを許可し、
// それ以外のすべてのパスにROLE_USERを要求する。
func defaultRules() authctx.Rules {
	return authctx.Rules{
		authctx.PermitAll("/auth/**"),
		authctx.PermitAll("/health"),
		authctx.RequireAuthority("/**", "ROLE_USER"),
	}
}

// setupRoutes は認証フィルタ・認可ミドルウェア・プロキシルートを設定する。
// 認証フィルタはすべてのルートに対して一度だけ実行され、拒否の判断は
// 認可ミドルウェアに一元化される。
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Authentication(s.verifier))
	s.router.Use(middleware.Authorization(s.rules))

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})

	// 認証サービスへの転送（ログイン・ユーザー登録）
	s.router.Any("/auth/*path", s.handleProxyAuth())

	// 上記以外はすべて業務サービスへ転送する
	s.router.NoRoute(s.handleProxyApp())
}

// handleProxyAuth は/auth配下のリクエストを認証サービスへ転送するハンドラを返す。
// /auth/v1/login は認証サービスの /v1/login に対応する。
func (s *Server) handleProxyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := s.serviceURLs.Auth + c.Param("path")
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// handleProxyApp は業務サービスへリクエストを転送するハンドラを返す。
func (s *Server) handleProxyApp() gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := s.serviceURLs.App + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, c.Request.Method, proxyURL)
	}
}

// doProxy はリクエストを内部サービスにプロキシする共通処理。
// 認証済みの場合はsubjectと権限リストを伝播ヘッダーとして付与する。
func (s *Server) doProxy(c *gin.Context, method, url string) {
	req, err := http.NewRequestWithContext(c.Request.Context(), method, url, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "プロキシリクエストの作成に失敗しました"})
		return
	}

	// 元のリクエストヘッダーを転送
	req.Header.Set("Content-Type", c.GetHeader("Content-Type"))
	req.Header.Set(middleware.HeaderAuthorization, c.GetHeader(middleware.HeaderAuthorization))
	if sc, ok := authctx.Get(c); ok {
		req.Header.Set(headerKeyUser, sc.Subject)
		req.Header.Set(headerKeyAuthorities, strings.Join(sc.Authorities, ","))
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "内部サービスとの通信に失敗しました"})
		log.Printf("プロキシエラー: url=%s, error=%v", url, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "レスポンスの読み取りに失敗しました"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	// ログイン応答のAuthorizationヘッダーをクライアントへ引き継ぐ
	if auth := resp.Header.Get(middleware.HeaderAuthorization); auth != "" {
		c.Header(middleware.HeaderAuthorization, auth)
	}

	c.Data(resp.StatusCode, contentType, body)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
