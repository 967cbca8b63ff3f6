package catalogapi

import (
	"context"
	"net/http"
	"strings"
)

// Tokens 登录返回的 token 对
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserInfo 远端用户信息
type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

// Login 登录；标识含 @ 时按邮箱提交
func (c *Client) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	body := map[string]string{"password": password}
	if strings.Contains(identifier, "@") {
		body["email"] = identifier
	} else {
		body["username"] = identifier
	}
	var t Tokens
	if err := c.send(ctx, http.MethodPost, "/auth/login/", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UserInfo 当前 token 对应的用户
func (c *Client) UserInfo(ctx context.Context) (*UserInfo, error) {
	var u UserInfo
	if err := c.get(ctx, "/auth/user-info/", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh 用 refresh token 换新的 access token
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var t Tokens
	if err := c.send(ctx, http.MethodPost, "/auth/refresh/", map[string]string{"refresh": refresh}, &t); err != nil {
		return "", err
	}
	return t.Access, nil
}
