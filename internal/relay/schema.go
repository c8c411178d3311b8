package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SignupRequest は受信するサインアップイベント。
type SignupRequest struct {
	// Email はメンバーのメールアドレス。必須。
	Email string
	// Name はメンバーの表示名。空の場合はGhostに送信しない。
	Name string
}

// OutcomeKind はパイプラインの各段階の結果の種類。
type OutcomeKind int

const (
	// OutcomeContinue は次の段階へ進むことを表す。終端の結果ではない。
	OutcomeContinue OutcomeKind = iota
	// OutcomeSuccess はGhostがメンバーを作成したことを表す。
	OutcomeSuccess
	// OutcomeConflict はメンバーが既に存在したことを表す（409/422）。成功として扱う。
	OutcomeConflict
	// OutcomeMethodNotAllowed はPOST以外のメソッドで呼び出されたことを表す。
	OutcomeMethodNotAllowed
	// OutcomeAuthFailure は共有シークレットが一致しなかったことを表す。
	OutcomeAuthFailure
	// OutcomeMalformedBody はボディがJSONとして解釈できなかったことを表す。
	OutcomeMalformedBody
	// OutcomeMissingField はemailが無い、または空であることを表す。
	OutcomeMissingField
	// OutcomeDownstreamError はGhostが許容外のステータスを返したことを表す。
	OutcomeDownstreamError
	// OutcomeInternalError はトークン発行の失敗や通信エラーを表す。
	OutcomeInternalError
)

// String はメトリクスのラベルやログに使う名前を返す。
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return "conflict"
	case OutcomeMethodNotAllowed:
		return "method_not_allowed"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeMalformedBody:
		return "malformed_body"
	case OutcomeMissingField:
		return "missing_field"
	case OutcomeDownstreamError:
		return "downstream_error"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome はパイプラインの1段階の結果。
// Kind が OutcomeContinue 以外であれば、その値がそのままリクエストの応答になる。
type Outcome struct {
	// Kind は結果の種類。
	Kind OutcomeKind
	// DownstreamStatus はGhostが返したステータスコード。
	DownstreamStatus int
	// DownstreamBody はGhostが返したレスポンスボディ。
	DownstreamBody string
	// Err は内部エラーの原因。
	Err error
}

// continueOutcome は次の段階へ進む結果。
var continueOutcome = Outcome{Kind: OutcomeContinue}

// okBody は成功時のレスポンスボディ。
var okBody = []byte(`{"ok":true}`)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// Response は結果に対応するHTTPステータス、Content-Type、ボディを返す。
// エラー応答は短い平文で、下流エラーの場合のみGhostのステータスとボディをそのまま含める。
func (o Outcome) Response() (int, string, []byte) {
	switch o.Kind {
	case OutcomeSuccess, OutcomeConflict:
		return http.StatusOK, contentTypeJSON, okBody
	case OutcomeMethodNotAllowed:
		return http.StatusMethodNotAllowed, contentTypeText, []byte("Method Not Allowed")
	case OutcomeAuthFailure:
		return http.StatusUnauthorized, contentTypeText, []byte("Unauthorized")
	case OutcomeMalformedBody:
		return http.StatusBadRequest, contentTypeText, []byte("Invalid JSON")
	case OutcomeMissingField:
		return http.StatusBadRequest, contentTypeText, []byte("Missing email")
	case OutcomeDownstreamError:
		return http.StatusInternalServerError, contentTypeText,
			[]byte(fmt.Sprintf("Ghost error %d: %s", o.DownstreamStatus, o.DownstreamBody))
	default:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return http.StatusInternalServerError, contentTypeText, []byte("Internal error: " + msg)
	}
}

// parseSignupRequest はリクエストボディをSignupRequestに変換する。
// JSONとして解釈できない場合は OutcomeMalformedBody、
// emailが空でない文字列でない場合は OutcomeMissingField を返す。
// nameは空でない文字列の場合のみ採用する。
func parseSignupRequest(body []byte) (SignupRequest, Outcome) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return SignupRequest{}, Outcome{Kind: OutcomeMalformedBody}
	}

	// 配列やnullなどオブジェクト以外はemailを持たないものとして扱う
	fields, _ := decoded.(map[string]any)
	email, _ := fields["email"].(string)
	if email == "" {
		return SignupRequest{}, Outcome{Kind: OutcomeMissingField}
	}
	name, _ := fields["name"].(string)

	return SignupRequest{Email: email, Name: name}, continueOutcome
}
