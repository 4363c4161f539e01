package authctx

import (
	"github.com/gin-gonic/gin"
)

// contextKeySecurity はGinコンテキストにセキュリティコンテキストを
// 格納するためのキー。
const contextKeySecurity = "security_context"

// SecurityContext は単一リクエストの認証状態を表す。
// 認証フィルタが設定し、下流の認可判定とハンドラが読み取る。
// リクエスト終了とともに破棄され、サーバー側に残らない。
type SecurityContext struct {
	// Subject は認証済みユーザーの識別子。
	Subject string
	// Authorities は認証済みユーザーに付与された権限名のリスト。
	Authorities []string
}

// HasAuthority は指定された権限名を保持しているかを返す。
// 権限名は発行時と同じ命名規則（ROLE_接頭辞付き）で完全一致比較する。
func (sc SecurityContext) HasAuthority(name string) bool {
	for _, a := range sc.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// Set は認証成功後のセキュリティコンテキストをリクエストに紐付ける。
// 認証フィルタ以外から呼んではならない。
func Set(c *gin.Context, subject string, authorities []string) {
	c.Set(contextKeySecurity, SecurityContext{
		Subject:     subject,
		Authorities: authorities,
	})
}

// Clear はセキュリティコンテキストを未認証状態に戻す。
// 検証が途中で失敗した場合でも、同一実行スロットに前リクエストの
// 認証情報が残らないことを保証するため、失敗経路では必ず呼ぶ。
func Clear(c *gin.Context) {
	c.Set(contextKeySecurity, nil)
}

// Get はリクエストのセキュリティコンテキストを取得する。
// 未認証の場合はゼロ値とfalseを返す。
func Get(c *gin.Context) (SecurityContext, bool) {
	v, exists := c.Get(contextKeySecurity)
	if !exists {
		return SecurityContext{}, false
	}
	sc, ok := v.(SecurityContext)
	if !ok {
		return SecurityContext{}, false
	}
	return sc, true
}
