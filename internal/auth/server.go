package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/nao1215/authgate/pkg/middleware"
	"github.com/nao1215/authgate/pkg/token"
)

// defaultSeedUsername はシードユーザーのユーザー名。
const defaultSeedUsername = "username"

// defaultSeedPassword はシードユーザーのパスワード。開発用。
const defaultSeedPassword = "password"

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は資格情報ストア。
	store *userStore
	// db はSQLiteデータベース接続。
	db *sql.DB
	// jwtSecret はトークン署名用の共有秘密鍵。起動後は読み取り専用。
	jwtSecret string
}

// NewServer は新しい認証サーバーを生成する。
// 署名鍵が未設定の場合はエラーを返す。これは起動時設定の不備であり、
// リクエスト処理中には発生させない。
func NewServer(port string) (*Server, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("署名鍵の設定が不正: %w", token.ErrNoSigningKey)
	}

	sqlDB, err := sql.Open("sqlite", "/data/auth.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		store:     newUserStore(sqlDB),
		db:        sqlDB,
		jwtSecret: jwtSecret,
	}

	if err := s.seedDefaultUser(context.Background()); err != nil {
		return nil, fmt.Errorf("シードユーザーの作成に失敗: %w", err)
	}

	s.setupRoutes()
	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/v1")
	{
		// 資格情報によるログインとトークン発行
		v1.POST("/login", s.handleLogin())
		// ゲートウェイから委譲されるトークン検証
		v1.POST("/jwt/parse", s.handleParseToken())
		// ユーザー登録
		v1.POST("/users", s.handleCreateUser())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "auth"})
	})
}

// seedDefaultUser は開発用のデフォルトユーザーを登録する。
// 既に存在する場合は何もしない。
func (s *Server) seedDefaultUser(ctx context.Context) error {
	_, err := s.store.GetByUsername(ctx, defaultSeedUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultSeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	return s.store.Create(ctx, &User{
		ID:           uuid.New().String(),
		Username:     defaultSeedUsername,
		PasswordHash: string(hash),
		Authorities:  []string{"ROLE_USER"},
	})
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はログインするユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。保存・ログ出力はしない。
	Password string `json:"password" binding:"required"`
}

// handleLogin は資格情報を検証してトークンを発行するハンドラを返す。
// 成功時はAuthorizationレスポンスヘッダーとボディの両方でトークンを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			// 資格情報の欠落はそのまま400として返してよい
			c.JSON(http.StatusBadRequest, gin.H{"error": "usernameとpasswordは必須です"})
			return
		}

		user, err := s.store.GetByUsername(c.Request.Context(), req.Username)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// ユーザー不在とパスワード不一致は区別して返さない
				c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが違います"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ログイン処理に失敗しました"})
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザー名またはパスワードが違います"})
			return
		}

		signed, err := token.Generate(s.jwtSecret, user.Username, user.Authorities)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			log.Printf("トークン生成エラー: %v", err)
			return
		}

		if err := s.store.UpdateLastLogin(c.Request.Context(), user.ID); err != nil {
			// ログイン自体は成功しているため記録失敗はログに留める
			log.Printf("最終ログイン日時の更新エラー: %v", err)
		}

		c.Header(middleware.HeaderAuthorization, "Bearer "+signed)
		c.JSON(http.StatusOK, gin.H{
			"token":    signed,
			"username": user.Username,
		})
	}
}

// jwtParseRequest はトークン検証リクエストのJSON構造。
type jwtParseRequest struct {
	// Token は検証対象のトークン文字列。
	Token string `json:"token" binding:"required"`
}

// handleParseToken はトークンを検証するハンドラを返す。
// ゲートウェイ専用のエンドポイント。失敗理由（形式不正・署名不正・
// 期限切れ）はレスポンスで区別しない。
func (s *Server) handleParseToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jwtParseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tokenは必須です"})
			return
		}

		subject, authorities, err := token.Parse(s.jwtSecret, req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "トークンが無効です"})
			return
		}

		if authorities == nil {
			authorities = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"username":    subject,
			"authorities": authorities,
		})
	}
}

// createUserRequest はユーザー登録リクエストのJSON構造。
type createUserRequest struct {
	// Username は登録するユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。bcryptでハッシュ化して保存する。
	Password string `json:"password" binding:"required"`
	// Authorities は付与する権限名のリスト。省略可。
	Authorities []string `json:"authorities"`
}

// handleCreateUser はユーザーを登録するハンドラを返す。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "usernameとpasswordは必須です"})
			return
		}

		if _, err := s.store.GetByUsername(c.Request.Context(), req.Username); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "このユーザー名は既に使用されています"})
			return
		} else if !errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			log.Printf("パスワードのハッシュ化エラー: %v", err)
			return
		}

		user := &User{
			ID:           uuid.New().String(),
			Username:     req.Username,
			PasswordHash: string(hash),
			Authorities:  req.Authorities,
		}
		if err := s.store.Create(c.Request.Context(), user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			log.Printf("ユーザー登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":       user.ID,
			"username": user.Username,
		})
	}
}
