package relay

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/nao1215/signup-relay/pkg/ghostadmin"
	"github.com/nao1215/signup-relay/pkg/httpclient"
	"github.com/nao1215/signup-relay/pkg/middleware"
)

// maxBodyBytes は受信ボディの上限。超えた場合は不正なJSONとして扱う。
const maxBodyBytes = 1 << 20

// signupState は1リクエスト分のパイプラインの状態。リクエストをまたいで共有しない。
type signupState struct {
	// authorization は受信したAuthorizationヘッダーの値。
	authorization string
	// body は受信ボディ。認証後にのみ読み出す。
	body io.Reader
	// request は検証済みのサインアップイベント。
	request SignupRequest
	// token はこのリクエストのために発行したAdmin APIトークン。
	token string
}

// stage はパイプラインの1段階。OutcomeContinue 以外を返すとそこで終了する。
type stage func(ctx context.Context, st *signupState) Outcome

// handleSignup はサインアップイベントを中継するハンドラを返す。
func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &signupState{
			authorization: c.GetHeader("Authorization"),
			body:          http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes),
		}
		// 呼び出し元が切断してもGhost呼び出しは打ち切らない。上限はDownstreamTimeoutのみ
		s.respond(c, s.runPipeline(context.WithoutCancel(c.Request.Context()), st))
	}
}

// handleMethodNotAllowed はPOST以外のメソッドに405を返すハンドラを返す。
func (s *Server) handleMethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.respond(c, Outcome{Kind: OutcomeMethodNotAllowed})
	}
}

// runPipeline は認証→パース→トークン発行→中継の順に段階を実行する。
func (s *Server) runPipeline(ctx context.Context, st *signupState) Outcome {
	stages := []stage{s.authenticate, s.parseBody, s.mintToken, s.createMember}
	for _, run := range stages {
		if out := run(ctx, st); out.Kind != OutcomeContinue {
			return out
		}
	}
	return Outcome{Kind: OutcomeInternalError, Err: errors.New("pipeline finished without outcome")}
}

// authenticate はAuthorizationヘッダーが "Bearer <共有シークレット>" と一致するかを検証する。
func (s *Server) authenticate(_ context.Context, st *signupState) Outcome {
	if !middleware.MatchBearer(st.authorization, s.cfg.SharedSecret) {
		return Outcome{Kind: OutcomeAuthFailure}
	}
	return continueOutcome
}

// parseBody はボディを読み出してSignupRequestに変換する。
func (s *Server) parseBody(_ context.Context, st *signupState) Outcome {
	body, err := io.ReadAll(st.body)
	if err != nil {
		return Outcome{Kind: OutcomeMalformedBody}
	}

	req, out := parseSignupRequest(body)
	if out.Kind != OutcomeContinue {
		return out
	}
	st.request = req
	return continueOutcome
}

// mintToken はこのリクエスト専用のAdmin APIトークンを発行する。
// キーの形式が不正な場合は設定の誤りとして内部エラーにする。
func (s *Server) mintToken(_ context.Context, st *signupState) Outcome {
	token, err := ghostadmin.MintToken(s.cfg.GhostAdminKey, s.now())
	if err != nil {
		return Outcome{Kind: OutcomeInternalError, Err: err}
	}
	st.token = token
	return continueOutcome
}

// createMember はGhostにメンバー作成を1回だけ依頼し、応答を結果に変換する。
// 409と422は既存メンバーとみなして成功扱いにする。
func (s *Server) createMember(ctx context.Context, st *signupState) Outcome {
	member := ghostadmin.NewMember(st.request.Email, st.request.Name)
	err := s.members.CreateMember(ctx, st.token, member)
	st.token = ""
	if err == nil {
		return Outcome{Kind: OutcomeSuccess}
	}

	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return Outcome{Kind: OutcomeInternalError, Err: err}
	}

	switch statusErr.StatusCode {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return Outcome{Kind: OutcomeConflict, DownstreamStatus: statusErr.StatusCode}
	default:
		return Outcome{
			Kind:             OutcomeDownstreamError,
			DownstreamStatus: statusErr.StatusCode,
			DownstreamBody:   statusErr.Body,
		}
	}
}

// respond は結果を記録してHTTP応答を書き込む。
func (s *Server) respond(c *gin.Context, out Outcome) {
	s.metrics.observe(out.Kind)
	s.logOutcome(c, out)

	status, contentType, body := out.Response()
	c.Data(status, contentType, body)
}

// logOutcome は結果の種類に応じたレベルでログを出力する。
// トークンや共有シークレット、メールアドレスは出力しない。
func (s *Server) logOutcome(c *gin.Context, out Outcome) {
	fields := []zap.Field{
		zap.Stringer("outcome", out.Kind),
		zap.String("request_id", middleware.GetRequestID(c)),
	}

	switch out.Kind {
	case OutcomeSuccess:
		s.lg.Info("Member created", fields...)
	case OutcomeConflict:
		s.lg.Info("Member already exists", append(fields, zap.Int("downstream_status", out.DownstreamStatus))...)
	case OutcomeDownstreamError:
		s.lg.Error("Ghost returned an error", append(fields,
			zap.Int("downstream_status", out.DownstreamStatus),
			zap.String("downstream_body", out.DownstreamBody),
		)...)
	case OutcomeInternalError:
		s.lg.Error("Relay failed", append(fields, zap.Error(out.Err))...)
	default:
		s.lg.Warn("Request rejected", fields...)
	}
}
