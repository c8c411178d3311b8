package ghostadmin

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenAudience はAdmin API向けトークンのaudクレーム。
	TokenAudience = "/admin/"
	// TokenLifetime はトークンの有効期間。iatからexpまでの秒数に相当する。
	TokenLifetime = 5 * time.Minute
)

// ErrInvalidKeyFormat はAdmin APIキーが "id:secret-hex" 形式でない場合のエラー。
// エラーメッセージには秘密鍵の内容を含めない。
var ErrInvalidKeyFormat = errors.New("invalid GHOST_ADMIN_KEY format")

// adminHeader はAdmin API向けトークンのヘッダー。
// jwt.Token.Headerはmapでキーがアルファベット順に並ぶため、alg, typ, kidの順で自前で組み立てる。
type adminHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid"`
}

// adminClaims はAdmin API向けトークンのペイロード。
// フィールドの並び順がそのままJSONのキー順になる。
type adminClaims struct {
	// IssuedAt は発行時刻（秒単位）。
	IssuedAt *jwt.NumericDate `json:"iat"`
	// ExpiresAt は有効期限（発行時刻+5分）。
	ExpiresAt *jwt.NumericDate `json:"exp"`
	// Audience は常に "/admin/"。配列ではなく単一の文字列で出力する。
	Audience string `json:"aud"`
}

var _ jwt.Claims = adminClaims{}

func (c adminClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c adminClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c adminClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c adminClaims) GetIssuer() (string, error)                   { return "", nil }
func (c adminClaims) GetSubject() (string, error)                  { return "", nil }
func (c adminClaims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// Key はパース済みのAdmin APIキー。
// 秘密鍵は非公開フィールドに保持し、署名（Mint）以外の用途には使わせない。
type Key struct {
	// ID はキー識別子。トークンヘッダーのkidになる。
	ID string
	// secret はHMAC-SHA-256の署名鍵（hexデコード済み）。
	secret []byte
}

// ParseKey は "id:secret-hex" 形式の文字列をKeyに変換する。
// 最初の ":" で分割し、どちらかが空、またはsecretが偶数長の16進数でない場合は
// ErrInvalidKeyFormat を返す。
func ParseKey(credential string) (*Key, error) {
	id, secretHex, found := strings.Cut(credential, ":")
	if !found || id == "" || secretHex == "" {
		return nil, ErrInvalidKeyFormat
	}

	// hexのエラーには不正な文字が含まれるため、原因は包まずに返す
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKeyFormat, "decode secret")
	}

	return &Key{ID: id, secret: secret}, nil
}

// Mint はnow時点で発行されたAdmin API用のトークンを生成する。
// nowは秒単位に切り捨てられ、expはiatのちょうど300秒後になる。
// 失敗した場合は空文字列とエラーを返し、途中まで作ったトークンは返さない。
func (k *Key) Mint(now time.Time) (string, error) {
	if k == nil || k.ID == "" || len(k.secret) == 0 {
		return "", ErrInvalidKeyFormat
	}

	issuedAt := now.Truncate(time.Second)
	claims := adminClaims{
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(TokenLifetime)),
		Audience:  TokenAudience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	header, err := json.Marshal(adminHeader{Alg: token.Method.Alg(), Typ: "JWT", Kid: k.ID})
	if err != nil {
		return "", errors.Wrap(err, "encode header")
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", errors.Wrap(err, "encode claims")
	}

	// 署名対象はbase64url化したheader.payloadの文字列
	signingString := token.EncodeSegment(header) + "." + token.EncodeSegment(payload)
	sig, err := token.Method.Sign(signingString, k.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign admin token")
	}
	return signingString + "." + token.EncodeSegment(sig), nil
}

// MintToken はAdmin APIキー文字列をパースし、now時点のトークンを発行する。
func MintToken(credential string, now time.Time) (string, error) {
	key, err := ParseKey(credential)
	if err != nil {
		return "", err
	}
	return key.Mint(now)
}
