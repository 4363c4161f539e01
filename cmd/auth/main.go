// 認証サービスのエントリポイント。
// ログインによるJWTの発行、トークンの検証、ユーザー登録を担当する。
// 署名鍵を保持する唯一のサービスであり、JWT_SECRETが未設定の場合は
// 起動に失敗する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/authgate/internal/auth"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server, err := auth.NewServer(port)
	if err != nil {
		log.Fatalf("認証サーバーの初期化に失敗: %v", err)
	}

	log.Printf("認証サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("認証サービスの起動に失敗: %v", err)
	}
}
