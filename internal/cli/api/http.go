package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CocoStock/internal/cli/auth"
)

// CookieName: имя cookie с JWT, которое выставляет сервер.
const CookieName = "auth_token"

// Client: HTTP-клиент API склада. Token передаётся cookie, если не пуст.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// StatusError: ответ сервера с неуспешным кодом.
type StatusError struct {
	Code    int
	Message string
	Fields  []string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("server status %d", e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Fields) > 0 {
		msg += " (fields: " + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

// CheckStatus превращает неуспешный ответ в *StatusError. Тело может быть JSON
// вида {"error":..., "fields":[...]} или простым текстом.
func CheckStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	se := &StatusError{Code: resp.StatusCode}
	var payload struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		se.Message = payload.Error
		se.Fields = payload.Fields
	} else {
		se.Message = strings.TrimSpace(string(body))
	}
	return se
}

// PostJSON отправляет JSON POST.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return c.Do(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json")
}

func (c *Client) Get(ctx context.Context, path string) (*http.Response, []byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) Delete(ctx context.Context, path string) (*http.Response, []byte, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, "")
}

// SendForm отправляет multipart-форму; imagePath, если задан, уходит частью image.
func (c *Client) SendForm(ctx context.Context, method, path string, fields map[string]string, imagePath string) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	// стабильный порядок полей
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, nil, err
		}
	}

	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open image: %w", err)
		}
		defer f.Close()

		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(imagePath)))
		ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
		if ct == "" {
			ct = "application/octet-stream"
		}
		hdr.Set("Content-Type", ct)
		pw, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, nil, err
		}
		if _, err := io.Copy(pw, f); err != nil {
			return nil, nil, fmt.Errorf("read image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	return c.Do(ctx, method, path, &buf, mw.FormDataContentType())
}

// Download пишет тело успешного ответа в w и возвращает число байт.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return 0, CheckStatus(resp, body)
	}
	return io.Copy(w, resp.Body)
}

// Do выполняет запрос и читает тело целиком.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, b, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: c.Token})
	}
	return req, nil
}

// PersistAuthFromResponse извлекает auth cookie из ответа и сохраняет его в store.
func PersistAuthFromResponse(resp *http.Response, store auth.Store) error {
	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return store.SaveToken(c.Value)
		}
	}
	return errors.New("no auth cookie in response")
}
