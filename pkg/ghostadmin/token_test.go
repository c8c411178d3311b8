package ghostadmin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// testKeyID はテスト用のキー識別子。
	testKeyID = "6489a1b2c3d4e5f601234567"
	// testSecretHex はテスト用の秘密鍵（16進数）。
	testSecretHex = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	// testCredential はテスト用のAdmin APIキー。
	testCredential = testKeyID + ":" + testSecretHex
)

// testNow はテスト用の固定発行時刻。秒未満の端数を含む。
var testNow = time.Unix(1700000000, 750_000_000)

// decodeSegment はトークンの1セグメントをデコードする。
func decodeSegment(t *testing.T, seg string) []byte {
	t.Helper()

	require.NotContains(t, seg, "=", "パディングが含まれている")
	b, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	return b
}

// TestParseKey はParseKey関数を検証する。
func TestParseKey(t *testing.T) {
	t.Parallel()

	t.Run("正しい形式のキーをパースできること", func(t *testing.T) {
		t.Parallel()

		key, err := ParseKey(testCredential)
		require.NoError(t, err)
		assert.Equal(t, testKeyID, key.ID)

		want, _ := hex.DecodeString(testSecretHex)
		assert.Equal(t, want, key.secret)
	})

	t.Run("不正な形式の場合にErrInvalidKeyFormatが返ること", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name       string
			credential string
		}{
			{"空文字列", ""},
			{"コロンなし", "abcdef0123"},
			{"IDが空", ":abcdef"},
			{"secretが空", "id:"},
			{"奇数長のhex", "id:abc"},
			{"16進数以外の文字", "id:zz11"},
			{"2つ目のコロンを含む", "id:ab:cd"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				key, err := ParseKey(tt.credential)
				require.Error(t, err)
				assert.Nil(t, key)
				assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
			})
		}
	})

	t.Run("エラーメッセージに秘密鍵が含まれないこと", func(t *testing.T) {
		t.Parallel()

		_, err := ParseKey("id:ffffzz")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "ffffzz")
		assert.NotContains(t, err.Error(), "z")
	})
}

// TestMint はKey.Mint関数を検証する。
func TestMint(t *testing.T) {
	t.Parallel()

	t.Run("3つのセグメントからなるトークンが生成されること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)
		assert.Len(t, strings.Split(token, "."), 3)
	})

	t.Run("ヘッダーとペイロードが固定の形であること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)
		parts := strings.Split(token, ".")

		var header map[string]any
		require.NoError(t, json.Unmarshal(decodeSegment(t, parts[0]), &header))
		assert.Equal(t, map[string]any{"alg": "HS256", "typ": "JWT", "kid": testKeyID}, header)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(decodeSegment(t, parts[1]), &payload))
		assert.Equal(t, map[string]any{
			"iat": float64(1700000000),
			"exp": float64(1700000300),
			"aud": "/admin/",
		}, payload)
	})

	t.Run("ペイロードが秒単位の整数でiat/exp/audの順に並ぶこと", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)
		parts := strings.Split(token, ".")

		assert.Equal(t, `{"iat":1700000000,"exp":1700000300,"aud":"/admin/"}`, string(decodeSegment(t, parts[1])))
	})

	t.Run("ヘッダーがalg/typ/kidの順に並ぶこと", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)
		parts := strings.Split(token, ".")

		assert.Equal(t, `{"alg":"HS256","typ":"JWT","kid":"`+testKeyID+`"}`, string(decodeSegment(t, parts[0])))
	})

	t.Run("同じキーと時刻からは同じトークンが生成されること", func(t *testing.T) {
		t.Parallel()

		first, err := MintToken(testCredential, testNow)
		require.NoError(t, err)
		second, err := MintToken(testCredential, testNow.Add(100*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("有効期限が常に発行時刻の300秒後であること", func(t *testing.T) {
		t.Parallel()

		key, err := ParseKey(testCredential)
		require.NoError(t, err)

		for _, now := range []time.Time{time.Unix(0, 0), time.Unix(1, 999_999_999), time.Now()} {
			token, err := key.Mint(now)
			require.NoError(t, err)

			var payload struct {
				IAT int64 `json:"iat"`
				EXP int64 `json:"exp"`
			}
			require.NoError(t, json.Unmarshal(decodeSegment(t, strings.Split(token, ".")[1]), &payload))
			assert.Equal(t, now.Unix(), payload.IAT)
			assert.Equal(t, int64(300), payload.EXP-payload.IAT)
		}
	})

	t.Run("署名がbase64化したheader.payloadに対するHMAC-SHA-256であること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)

		idx := strings.LastIndex(token, ".")
		signingInput, sig := token[:idx], token[idx+1:]

		secret, _ := hex.DecodeString(testSecretHex)
		mac := hmac.New(sha256.New, secret)
		mac.Write([]byte(signingInput))
		assert.Equal(t, base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), sig)
	})

	t.Run("golang-jwtで検証できること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)

		secret, _ := hex.DecodeString(testSecretHex)
		parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
			assert.Equal(t, testKeyID, tok.Header["kid"])
			return secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(TokenAudience),
			jwt.WithTimeFunc(func() time.Time { return testNow.Add(time.Minute) }),
		)
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
	})

	t.Run("別の秘密鍵では検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken(testCredential, testNow)
		require.NoError(t, err)

		_, err = jwt.Parse(token, func(*jwt.Token) (any, error) {
			return []byte("wrong-secret"), nil
		}, jwt.WithTimeFunc(func() time.Time { return testNow }))
		require.Error(t, err)
		assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
	})

	t.Run("不正なキーの場合は空文字列とエラーが返ること", func(t *testing.T) {
		t.Parallel()

		token, err := MintToken("no-colon", testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidKeyFormat))
		assert.Empty(t, token)

		var key *Key
		token, err = key.Mint(testNow)
		require.Error(t, err)
		assert.Empty(t, token)
	})
}
