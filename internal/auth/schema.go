package auth

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。資格情報ストアの唯一のテーブル。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーの一意識別子
    id TEXT PRIMARY KEY,
    -- ログインに使用するユーザー名
    username TEXT NOT NULL,
    -- bcryptでハッシュ化されたパスワード
    password_hash TEXT NOT NULL,
    -- 権限名のJSON配列（例: ["ROLE_USER"]）
    authorities TEXT NOT NULL DEFAULT '[]',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    -- 最終ログイン日時
    last_login_at DATETIME
);

-- ユーザー名の重複を禁止し、ログイン時の検索を高速化するインデックス。
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username
    ON users(username);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
