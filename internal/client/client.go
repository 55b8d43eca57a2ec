// Package client 工时服务的 HTTP 客户端，供 CLI 与视图模型使用
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
)

const apiPrefix = "/api/v1"

// errorEnvelope 服务端错误响应格式 {code, message, details?}
type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Code    int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP %d (code %d): %s: %s", e.Status, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("HTTP %d (code %d): %s", e.Status, e.Code, e.Message)
}

// IsNotFound 判断错误是否为 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ExportParams 导出当前周所需的员工信息
type ExportParams struct {
	Name       string
	EmployeeID string
	Location   string
	Department string
}

// Client 工时服务 API 客户端，不做重试
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New 创建客户端，baseURL 形如 http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListWeek GET /entries/week/{weekStart}
func (c *Client) ListWeek(ctx context.Context, weekStart time.Time) ([]dto.TimesheetEntry, error) {
	var entries []dto.TimesheetEntry
	err := c.do(ctx, http.MethodGet, "/entries/week/"+weekStart.Format("2006-01-02"), nil, &entries)
	return entries, err
}

// List GET /entries
func (c *Client) List(ctx context.Context) ([]dto.TimesheetEntry, error) {
	var entries []dto.TimesheetEntry
	err := c.do(ctx, http.MethodGet, "/entries", nil, &entries)
	return entries, err
}

// Get GET /entries/{id}
func (c *Client) Get(ctx context.Context, id uint) (*dto.TimesheetEntry, error) {
	var entry dto.TimesheetEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/entries/%d", id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create POST /entries，同日期已存在时服务端覆盖并返回原记录
func (c *Client) Create(ctx context.Context, entry *dto.TimesheetEntry) (*dto.TimesheetEntry, error) {
	var saved dto.TimesheetEntry
	if err := c.do(ctx, http.MethodPost, "/entries", entry, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Update PUT /entries/{id}
func (c *Client) Update(ctx context.Context, id uint, entry *dto.TimesheetEntry) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/entries/%d", id), entry, nil)
}

// Delete DELETE /entries/{id}
func (c *Client) Delete(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/entries/%d", id), nil, nil)
}

// ExportCurrentWeek GET /entries/export/current-week，返回文件内容与文件名
func (c *Client) ExportCurrentWeek(ctx context.Context, p ExportParams) ([]byte, string, error) {
	q := url.Values{}
	q.Set("name", p.Name)
	q.Set("employeeId", p.EmployeeID)
	q.Set("location", p.Location)
	q.Set("department", p.Department)

	req, err := c.newRequest(ctx, http.MethodGet, "/entries/export/current-week?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("请求导出失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("读取导出内容失败: %w", err)
	}
	return data, attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// ── 内部辅助 ──

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("编码请求体失败: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// decodeError 解析错误信封；响应体不是信封时以状态文本作为消息
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Details = env.Details
		return apiErr
	}
	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
