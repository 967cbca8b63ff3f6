// Package catalogapi 远程商品/认证/订单 REST API 客户端
// 字段名与远端保持一致（西语），上层负责与本地模型互转
package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Options 客户端配置
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int // 只作用于 GET
	UserAgent  string
}

// Client 远程 API 客户端
// read 客户端带重试，write 客户端不重试，避免重复创建
type Client struct {
	read  *resty.Client
	write *resty.Client
	token string
}

// New 创建客户端
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ShopSmart-Console/1.0"
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	newResty := func() *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", opts.UserAgent)
	}

	read := newResty().
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{read: read, write: newResty()}
}

// WithToken 返回携带 Bearer token 的客户端副本，底层连接共享
func (c *Client) WithToken(token string) *Client {
	return &Client{read: c.read, write: c.write, token: token}
}

func (c *Client) request(ctx context.Context, rc *resty.Client) *resty.Request {
	r := rc.R().SetContext(ctx)
	if c.token != "" {
		r.SetAuthToken(c.token)
	}
	return r
}

// get GET 并解码到 out
func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	r := c.request(ctx, c.read)
	if len(query) > 0 {
		r.SetQueryParams(query)
	}
	resp, err := r.Get(path)
	return decode(resp, err, http.MethodGet, path, out)
}

// send 非 GET 的 JSON 请求
func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	r := c.request(ctx, c.write).SetHeader("Content-Type", "application/json")
	if body != nil {
		r.SetBody(body)
	}
	resp, err := r.Execute(method, path)
	return decode(resp, err, method, path, out)
}

func decode(resp *resty.Response, err error, method, path string, out interface{}) error {
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}
	if out == nil || len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// decodeList 兼容数组与分页对象 {"results": [...]}
func decodeList(raw json.RawMessage, out interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return errors.Wrap(err, "decode page")
		}
		trimmed = page.Results
		if len(trimmed) == 0 {
			return nil
		}
	}
	return errors.Wrap(json.Unmarshal(trimmed, out), "decode list")
}

// ==================== APIError ====================

// APIError 远端返回的非 2xx 响应
type APIError struct {
	Status int
	Detail string
	Fields map[string][]string
	Body   string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		return strings.Join(parts, "; ")
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("remote api returned %d", e.Status)
}

// IsAPIError 提取 APIError
func IsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// newAPIError 解析错误体：{"detail": "..."} 或 {"field": ["msg", ...]}
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: string(body)}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		e.Detail = strings.TrimSpace(string(body))
		if len(e.Detail) > 200 {
			e.Detail = e.Detail[:200]
		}
		return e
	}
	for k, v := range payload {
		if k == "detail" || k == "message" || k == "error" {
			if s, ok := v.(string); ok {
				e.Detail = s
				continue
			}
		}
		msgs := flatten(v)
		if len(msgs) == 0 {
			continue
		}
		if e.Fields == nil {
			e.Fields = map[string][]string{}
		}
		e.Fields[k] = msgs
	}
	return e
}

func flatten(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			for _, msg := range flatten(t[k]) {
				out = append(out, k+": "+msg)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}
