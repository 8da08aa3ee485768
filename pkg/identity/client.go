package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/model"
)

var ErrUserNotFound = errors.New("user not found")

// StatusError is returned for any unexpected identity service response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity service returned %d: %s", e.StatusCode, e.Body)
}

type userResponse struct {
	IDNumber   int64           `json:"idNumber"`
	Name       string          `json:"name"`
	LastName   string          `json:"lastName"`
	Email      string          `json:"email"`
	BaseSalary decimal.Decimal `json:"baseSalary"`
	RoleID     int64           `json:"idRole"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// Client resolves requesters against the identity service, forwarding the
// caller's bearer credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) GetUserByID(ctx context.Context, id int64, credential string) (*model.User, error) {
	var resp userResponse
	path := "/api/v1/usuarios/" + strconv.FormatInt(id, 10)
	if err := c.get(ctx, path, credential, &resp); err != nil {
		c.logger.Warn("user lookup failed", zap.Int64("user_id", id), zap.Error(err))
		return nil, err
	}

	return &model.User{
		ID:         resp.IDNumber,
		Name:       resp.Name,
		LastName:   resp.LastName,
		Email:      resp.Email,
		BaseSalary: resp.BaseSalary,
		RoleID:     resp.RoleID,
	}, nil
}

func (c *Client) ExistsByEmail(ctx context.Context, email, credential string) (bool, error) {
	var resp existsResponse
	path := "/api/v1/usuarios/exists/email/" + url.PathEscape(email)
	if err := c.get(ctx, path, credential, &resp); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		c.logger.Warn("email lookup failed", zap.String("email", email), zap.Error(err))
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) get(ctx context.Context, path, credential string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(credential, "Bearer "))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}
