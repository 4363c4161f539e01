package authctx

import (
	"fmt"
	"strings"
)

// permitAllMarker はルール設定文字列中で全許可を表すマーカー。
const permitAllMarker = "permitAll"

// Rule はパスパターンと要求条件の組を表す認可ルール。
// PermitAllまたはRequireAuthorityで生成する。
type Rule struct {
	// Pattern は適用対象のパスパターン。
	// "*"は1セグメント、末尾の"**"は任意の残りパスに一致する。
	Pattern string
	// permitAll がtrueの場合、認証状態にかかわらず許可する。
	permitAll bool
	// authority は要求する権限名。permitAllがfalseの場合のみ有効。
	authority string
}

// PermitAll は指定パターンへのアクセスを無条件に許可するルールを返す。
func PermitAll(pattern string) Rule {
	return Rule{Pattern: pattern, permitAll: true}
}

// RequireAuthority は指定パターンへのアクセスに権限名を要求するルールを返す。
// 権限名は発行時の命名規則（ROLE_接頭辞付き）で指定する。
func RequireAuthority(pattern, authority string) Rule {
	return Rule{Pattern: pattern, authority: authority}
}

// Rules は宣言順に評価される認可ルールの列。
// プロセス起動時に一度構築し、以後は読み取り専用として扱うこと。
type Rules []Rule

// Allows はパスとセキュリティコンテキストから許可可否を判定する。
// ルールを宣言順に走査し、最初にパターンが一致したルールのみで決める。
// どのルールにも一致しない場合は拒否する（フェイルクローズ）。
func (rs Rules) Allows(path string, sc SecurityContext, authenticated bool) bool {
	for _, r := range rs {
		if !matchPattern(r.Pattern, path) {
			continue
		}
		if r.permitAll {
			return true
		}
		return authenticated && sc.HasAuthority(r.authority)
	}
	return false
}

// matchPattern はant形式のパスパターン照合を行う。
// "*"はセグメント1つ、末尾の"**"は任意の残りパス（空を含む）に一致する。
func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}

	patternSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")

	for i, seg := range patternSegs {
		if seg == "**" {
			// 末尾以外の"**"はサポートしない
			return i == len(patternSegs)-1
		}
		if i >= len(pathSegs) {
			return false
		}
		if seg != "*" && seg != pathSegs[i] {
			return false
		}
	}
	return len(patternSegs) == len(pathSegs)
}

// ParseRules はルール設定文字列を解析してルール列を返す。
// 形式は「パターン=要求」のカンマ区切り。要求はpermitAllまたは権限名。
// 例: "/auth/**=permitAll,/health=permitAll,/**=ROLE_USER"
func ParseRules(s string) (Rules, error) {
	var rules Rules
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pattern, requirement, found := strings.Cut(entry, "=")
		if !found || pattern == "" || requirement == "" {
			return nil, fmt.Errorf("認可ルールの形式が不正: %q", entry)
		}
		if requirement == permitAllMarker {
			rules = append(rules, PermitAll(pattern))
		} else {
			rules = append(rules, RequireAuthority(pattern, requirement))
		}
	}
	return rules, nil
}
