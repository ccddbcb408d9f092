// Package apiclient is a typed client of the dietapp REST API used by the admin tools.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
)

const (
	authorizationHeader = "Authorization"
	contentTypeHeader   = "Content-Type"
	defaultTimeout      = 15 * time.Second
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("not found")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// New builds a client for baseURL (e.g. https://region-project.cloudfunctions.net/Api).
// token is a Firebase ID token and may be empty for public endpoints.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Add(authorizationHeader, "Bearer "+c.token)
	}
	req.Header.Add(contentTypeHeader, "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Wrap(apperr.Network, apperr.Network.DisplayText(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Network, apperr.Network.DisplayText(), err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func responseError(status int, body []byte) error {
	var er contract.ErrorResponse
	_ = json.Unmarshal(body, &er)
	if status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", er.Message, ErrNotFound)
	}
	var kind apperr.Kind
	switch {
	case er.Error == apperr.Validation.String() || status == http.StatusBadRequest:
		kind = apperr.Validation
	case er.Error == apperr.Auth.String() || status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = apperr.Auth
	case er.Error == apperr.Network.String() || status == http.StatusServiceUnavailable:
		kind = apperr.Network
	default:
		kind = apperr.Unknown
	}
	msg := er.Message
	if msg == "" {
		msg = kind.DisplayText()
	}
	return apperr.Wrap(kind, msg, fmt.Errorf("unexpected status code: %d", status))
}

func (c *Client) Me(ctx context.Context) (*contract.User, error) {
	var u contract.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type UserFilter struct {
	Query  string
	Role   string
	Gender string
}

func (c *Client) Users(ctx context.Context, f UserFilter) (*contract.UsersResponse, error) {
	q := url.Values{}
	for k, v := range map[string]string{"q": f.Query, "role": f.Role, "gender": f.Gender} {
		if v != "" {
			q.Set(k, v)
		}
	}
	var res contract.UsersResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SetRole(ctx context.Context, userID string, role contract.UserRole) (*contract.User, error) {
	var u contract.User
	err := c.do(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(userID)+"/role", nil, contract.RoleRequest{Role: string(role)}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(userID), nil, nil, nil)
}

// Statistics returns the stored statistics, or freshly computed ones when refresh is set.
func (c *Client) Statistics(ctx context.Context, refresh bool) (*contract.AppStatistics, error) {
	method, path := http.MethodGet, "/api/admin/statistics"
	if refresh {
		method, path = http.MethodPost, path+"/refresh"
	}
	var st contract.AppStatistics
	if err := c.do(ctx, method, path, nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Recipes(ctx context.Context, query string, mealType contract.MealType) ([]contract.RecipeResponse, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if mealType != "" {
		q.Set("mealType", string(mealType))
	}
	var out []contract.RecipeResponse
	if err := c.do(ctx, http.MethodGet, "/api/recipes", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateInvitation(ctx context.Context, req contract.InvitationRequest) (*contract.InvitationResponse, error) {
	var inv contract.InvitationResponse
	if err := c.do(ctx, http.MethodPost, "/api/invitations", nil, req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) Invitations(ctx context.Context) ([]contract.InvitationResponse, error) {
	var out []contract.InvitationResponse
	if err := c.do(ctx, http.MethodGet, "/api/invitations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RevokeInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/invitations/"+url.PathEscape(id), nil, nil, nil)
}
