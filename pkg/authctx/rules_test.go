package authctx

import (
	"testing"
)

// TestRulesAllows は認可ルールの評価を検証する。
func TestRulesAllows(t *testing.T) {
	t.Parallel()

	rules := Rules{
		PermitAll("/auth/**"),
		PermitAll("/health"),
		RequireAuthority("/admin/**", "ROLE_ADMIN"),
		RequireAuthority("/**", "ROLE_USER"),
	}

	authenticated := SecurityContext{Subject: "username", Authorities: []string{"ROLE_USER"}}
	admin := SecurityContext{Subject: "admin", Authorities: []string{"ROLE_USER", "ROLE_ADMIN"}}

	t.Run("permitAllのパスは未認証でも許可されること", func(t *testing.T) {
		t.Parallel()

		if !rules.Allows("/auth/v1/login", SecurityContext{}, false) {
			t.Error("未認証の/auth/v1/loginが拒否された")
		}
	})

	t.Run("permitAllのパスは認証済みでも許可されること", func(t *testing.T) {
		t.Parallel()

		if !rules.Allows("/health", authenticated, true) {
			t.Error("認証済みの/healthが拒否された")
		}
	})

	t.Run("権限要求のパスは該当権限を持つ認証済みユーザーのみ許可されること", func(t *testing.T) {
		t.Parallel()

		if !rules.Allows("/api/v1/orders", authenticated, true) {
			t.Error("ROLE_USERを持つユーザーの/api/v1/ordersが拒否された")
		}
	})

	t.Run("権限要求のパスは未認証ユーザーに拒否されること", func(t *testing.T) {
		t.Parallel()

		if rules.Allows("/api/v1/orders", SecurityContext{}, false) {
			t.Error("未認証ユーザーの/api/v1/ordersが許可された")
		}
	})

	t.Run("要求権限を持たない認証済みユーザーは拒否されること", func(t *testing.T) {
		t.Parallel()

		if rules.Allows("/admin/users", authenticated, true) {
			t.Error("ROLE_ADMINを持たないユーザーの/admin/usersが許可された")
		}
	})

	t.Run("要求権限を持つ認証済みユーザーは許可されること", func(t *testing.T) {
		t.Parallel()

		if !rules.Allows("/admin/users", admin, true) {
			t.Error("ROLE_ADMINを持つユーザーの/admin/usersが拒否された")
		}
	})

	t.Run("先に一致したルールが後続のルールより優先されること", func(t *testing.T) {
		t.Parallel()

		// /admin/** は全捕捉の/**より先に評価される
		if rules.Allows("/admin/users", authenticated, true) {
			t.Error("/**のROLE_USERルールが/admin/**より先に適用された")
		}
	})

	t.Run("どのルールにも一致しないパスは拒否されること", func(t *testing.T) {
		t.Parallel()

		narrow := Rules{PermitAll("/health")}
		if narrow.Allows("/api/v1/orders", admin, true) {
			t.Error("ルール未定義のパスが許可された")
		}
		if narrow.Allows("/api/v1/orders", SecurityContext{}, false) {
			t.Error("ルール未定義のパスが未認証で許可された")
		}
	})

	t.Run("ルールが空の場合は常に拒否されること", func(t *testing.T) {
		t.Parallel()

		if (Rules{}).Allows("/health", admin, true) {
			t.Error("空のルール列が許可を返した")
		}
	})
}

// TestMatchPattern はパスパターン照合を検証する。
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"完全一致", "/health", "/health", true},
		{"不一致", "/health", "/metrics", false},
		{"末尾の**は任意の残りパスに一致", "/auth/**", "/auth/v1/login", true},
		{"末尾の**はセグメントなしにも一致", "/auth/**", "/auth", true},
		{"**は全捕捉パターンとして機能", "/**", "/api/v1/orders", true},
		{"**はルートにも一致", "/**", "/", true},
		{"*は1セグメントのみ一致", "/api/*/orders", "/api/v1/orders", true},
		{"*は複数セグメントに一致しない", "/api/*/orders", "/api/v1/x/orders", false},
		{"前方一致だけでは不一致", "/auth", "/auth/v1/login", false},
		{"セグメント数が足りない場合は不一致", "/api/v1/orders", "/api/v1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestParseRules はルール設定文字列の解析を検証する。
func TestParseRules(t *testing.T) {
	t.Parallel()

	t.Run("正常な設定文字列を解析できること", func(t *testing.T) {
		t.Parallel()

		rules, err := ParseRules("/auth/**=permitAll, /health=permitAll, /**=ROLE_USER")
		if err != nil {
			t.Fatalf("ParseRules()でエラーが発生: %v", err)
		}
		if len(rules) != 3 {
			t.Fatalf("ルール数 = %d, want 3", len(rules))
		}
		if !rules.Allows("/auth/v1/login", SecurityContext{}, false) {
			t.Error("解析されたpermitAllルールが機能していない")
		}
		if rules.Allows("/api/v1/orders", SecurityContext{}, false) {
			t.Error("解析されたROLE_USERルールが未認証を許可した")
		}
	})

	t.Run("空文字列は空のルール列を返すこと", func(t *testing.T) {
		t.Parallel()

		rules, err := ParseRules("")
		if err != nil {
			t.Fatalf("ParseRules()でエラーが発生: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("ルール数 = %d, want 0", len(rules))
		}
	})

	t.Run("区切りが不正な場合エラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseRules("/auth/**"); err == nil {
			t.Error("要求のないエントリがエラーを返すべき")
		}
	})
}
