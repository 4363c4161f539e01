package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime はトークンの有効期間。発行時刻から24時間で失効する。
// 呼び出しごとの変更は許可しない。
const Lifetime = 24 * time.Hour

// 検証失敗の種別。ゲートウェイ側ではいずれも「未認証として扱う」に
// 集約されるが、発行側のログや単体テストでは区別する。
var (
	// ErrMalformed はトークン文字列の構造を解析できないことを表す。
	ErrMalformed = errors.New("トークンの形式が不正")
	// ErrInvalidSignature は署名の不一致（改ざんまたは鍵違い）を表す。
	ErrInvalidSignature = errors.New("トークンの署名が不正")
	// ErrExpired はトークンの有効期限切れを表す。
	ErrExpired = errors.New("トークンの有効期限切れ")
	// ErrNoSigningKey は署名鍵が未設定であることを表す。
	// 起動時設定の不備であり、リクエスト単位のエラーではない。
	ErrNoSigningKey = errors.New("署名鍵が設定されていない")
)

// Claims はトークンに埋め込むクレーム（ペイロード）を表す。
// subjectには認証済みユーザー名、authoritiesには権限名を格納し、
// サービス間で認可情報を伝播するために使用する。
type Claims struct {
	jwt.RegisteredClaims
	// Authorities は認証済みユーザーに付与された権限名のリスト。
	// 空の場合もある。重複は除去しない。
	Authorities []string `json:"authorities"`
}

// Generate はsubjectとauthoritiesから署名付きトークンを生成する。
// 発行時刻は現在時刻、有効期限はLifetime経過後に固定される。
// subjectは認証済みの空でないユーザー識別子でなければならない。
func Generate(secret, subject string, authorities []string) (string, error) {
	if secret == "" {
		return "", ErrNoSigningKey
	}
	if subject == "" {
		return "", errors.New("subjectが空")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
		Authorities: authorities,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Parse はトークン文字列を検証し、subjectとauthoritiesを返す。
// 署名の再計算・比較と有効期限の確認のみを行い、権限の解釈は
// 呼び出し側（認可判定）に委ねる。外部ストアへの問い合わせはなく、
// 署名鍵を持つプロセス内で完結する純粋な検証である。
func Parse(secret, tokenString string) (subject string, authorities []string, err error) {
	if secret == "" {
		return "", nil, ErrNoSigningKey
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", nil, classifyParseError(err)
	}
	if !t.Valid {
		return "", nil, ErrInvalidSignature
	}
	return claims.Subject, claims.Authorities, nil
}

// classifyParseError はgolang-jwtのエラーを本パッケージの種別へ変換する。
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
