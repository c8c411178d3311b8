package ghostadmin

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/nao1215/signup-relay/pkg/httpclient"
)

const (
	// membersPath はメンバー作成エンドポイントのパス。
	membersPath = "/ghost/api/admin/members/"
	// BuilderLabel は作成するすべてのメンバーに付与する分類ラベル。
	BuilderLabel = "Builder"
	// authScheme はAdmin APIのAuthorizationヘッダーのスキーム。
	authScheme = "Ghost "
)

// Label はメンバーに付与するラベル。
type Label struct {
	Name string `json:"name"`
}

// Member はメンバー作成リクエストの1件分。
// Nameは空の場合に送信しない。
type Member struct {
	Email  string  `json:"email"`
	Name   string  `json:"name,omitempty"`
	Labels []Label `json:"labels"`
}

// createMembersRequest はメンバー作成APIのリクエストボディ。
type createMembersRequest struct {
	Members []Member `json:"members"`
}

// NewMember はBuilderラベル付きのメンバーを生成する。
func NewMember(email, name string) Member {
	return Member{
		Email:  email,
		Name:   name,
		Labels: []Label{{Name: BuilderLabel}},
	}
}

// Client はGhost Admin APIのメンバー作成クライアント。
type Client struct {
	// http はベースURLを正規化済みのHTTPクライアント。
	http *httpclient.Client
}

// NewClient は新しいメンバー作成クライアントを生成する。
func NewClient(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// CreateMember はtokenを提示してメンバーを1件作成する。
// 2xx以外の応答は *httpclient.StatusError として返す。409/422の扱いは呼び出し側で決める。
func (c *Client) CreateMember(ctx context.Context, token string, member Member) error {
	header := http.Header{}
	header.Set("Authorization", authScheme+token)

	body := createMembersRequest{Members: []Member{member}}
	if err := c.http.PostJSON(ctx, membersPath, header, body, nil); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return statusErr
		}
		return errors.Wrap(err, "create member")
	}
	return nil
}
