package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUserNotFound は該当するユーザーが存在しないことを表す。
var ErrUserNotFound = errors.New("ユーザーが見つからない")

// User は資格情報ストアの1レコードを表す。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Username はログインに使用するユーザー名。
	Username string
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string
	// Authorities はユーザーに付与された権限名のリスト。
	Authorities []string
}

// userStore はSQLite上の資格情報ストアへのアクセスを提供する。
type userStore struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// newUserStore は資格情報ストアを生成する。
func newUserStore(db *sql.DB) *userStore {
	return &userStore{db: db}
}

// GetByUsername はユーザー名からユーザーを取得する。
// 存在しない場合はErrUserNotFoundを返す。
func (s *userStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, authorities FROM users WHERE username = ?`, username)

	var u User
	var authoritiesJSON string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &authoritiesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	if err := json.Unmarshal([]byte(authoritiesJSON), &u.Authorities); err != nil {
		return nil, fmt.Errorf("権限リストのデシリアライズに失敗: %w", err)
	}
	return &u, nil
}

// Create はユーザーを新規登録する。ユーザー名の重複はエラーとなる。
func (s *userStore) Create(ctx context.Context, u *User) error {
	authoritiesJSON, err := json.Marshal(u.Authorities)
	if err != nil {
		return fmt.Errorf("権限リストのシリアライズに失敗: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, authorities) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, string(authoritiesJSON)); err != nil {
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// UpdateLastLogin は最終ログイン日時を現在時刻に更新する。
func (s *userStore) UpdateLastLogin(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = datetime('now') WHERE id = ?`, id); err != nil {
		return fmt.Errorf("最終ログイン日時の更新に失敗: %w", err)
	}
	return nil
}
