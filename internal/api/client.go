// Package api implements the client for the positivity service's REST API.
// It exposes the Client interface consumed by the engines and an HTTP
// implementation that attaches the bearer token, tags every request with an
// id, and maps failures onto the typed error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"uplift/internal/models"
	"uplift/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

// TokenSource supplies the current bearer token, or "" when unauthenticated.
// The session layer owns rotation; the client just asks on every call.
type TokenSource func() string

// Client defines the remote operations the engines depend on.
type Client interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Profile(ctx context.Context) (*models.User, error)
	Stats(ctx context.Context) (*models.UserStats, error)
	PointsHistory(ctx context.Context, page, limit int) ([]models.PointsTransaction, error)
	CheckinInfo(ctx context.Context) (*models.CheckinInfo, error)
	Checkin(ctx context.Context) (*models.CheckinResult, error)
	DailyContent(ctx context.Context, category string) ([]models.DailyContentItem, error)
	Unlock(ctx context.Context, contentID string) (*models.UnlockResult, error)
	Vote(ctx context.Context, contentID string, vote models.VoteType) (*models.ContentItem, error)
	Submit(ctx context.Context, draft models.ContentDraft) (*models.ContentItem, error)
	Mine(ctx context.Context) ([]models.ContentItem, error)
	ChangePassword(ctx context.Context, current, next string) error
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	token   TokenSource
	log     *logger.Logger
}

// NewHTTPClient creates a client for the given base URL. The token source may
// return "" for unauthenticated calls such as Login.
func NewHTTPClient(baseURL string, token TokenSource, l *logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{},
		token:   token,
		log:     l,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return "", nil, &Error{Kind: KindDecode, Message: "login response missing token or user"}
	}
	return resp.Token, resp.User, nil
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.do(ctx, http.MethodGet, "/users/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) PointsHistory(ctx context.Context, page, limit int) ([]models.PointsTransaction, error) {
	var transactions []models.PointsTransaction
	path := fmt.Sprintf("/users/points-history?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (c *HTTPClient) CheckinInfo(ctx context.Context) (*models.CheckinInfo, error) {
	var info models.CheckinInfo
	if err := c.do(ctx, http.MethodGet, "/checkin/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) Checkin(ctx context.Context) (*models.CheckinResult, error) {
	var result models.CheckinResult
	if err := c.do(ctx, http.MethodPost, "/checkin", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) DailyContent(ctx context.Context, category string) ([]models.DailyContentItem, error) {
	var items []models.DailyContentItem
	if err := c.do(ctx, http.MethodGet, "/content/"+category+"/daily", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) Unlock(ctx context.Context, contentID string) (*models.UnlockResult, error) {
	var result models.UnlockResult
	if err := c.do(ctx, http.MethodPost, "/content/"+contentID+"/unlock", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Vote(ctx context.Context, contentID string, vote models.VoteType) (*models.ContentItem, error) {
	var item models.ContentItem
	body := models.VoteRequest{VoteType: vote}
	if err := c.do(ctx, http.MethodPost, "/content/"+contentID+"/vote", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) Submit(ctx context.Context, draft models.ContentDraft) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := c.do(ctx, http.MethodPost, "/content/submit", draft, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) Mine(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem
	if err := c.do(ctx, http.MethodGet, "/content/mine", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, current, next string) error {
	body := models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.do(ctx, http.MethodPost, "/auth/password", body, nil)
}

// do performs one API call: marshal the body, attach auth and a request id,
// classify any failure, and decode the response into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Sugar().Errorf("Request %s %s failed: %s", method, path, err)
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	c.log.Info("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized {
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: serverMessage(resp.Body)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: serverMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Sugar().Errorf("Failed to decode %s %s response: %s", method, path, err)
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// serverMessage pulls the error string out of a rejection body, if there is one.
func serverMessage(body io.Reader) string {
	var payload models.ErrorResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return payload.Errors
}
