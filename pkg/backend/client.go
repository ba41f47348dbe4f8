package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/moneyboard/moneyboard/pkg/finance"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var ErrUnauthenticated = errors.New("not authenticated with the finance backend")
var ErrNotFound = errors.New("not found in the finance backend")

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("finance backend returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

type Query struct {
	Search string
	Page   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// Page is one page of a list endpoint. NextPage is 0 on the last page.
type Page[T any] struct {
	Items    []T `json:"items"`
	NextPage int `json:"next_page,omitempty"`
}

type TransactionPage struct {
	Items    []finance.Transaction `json:"items"`
	Lookups  finance.Lookups       `json:"lookups"`
	NextPage int                   `json:"next_page,omitempty"`
}

type Client interface {
	ListAssets(ctx context.Context, q Query) (Page[finance.Asset], error)                 // GET /assets
	ListAccounts(ctx context.Context, q Query) (Page[finance.Account], error)             // GET /accounts
	ListCategories(ctx context.Context, q Query) (Page[finance.Category], error)          // GET /categories
	ListAccountTypes(ctx context.Context, q Query) (Page[finance.AccountType], error)     // GET /account-types
	ListCategoryTypes(ctx context.Context, q Query) (Page[finance.CategoryType], error)   // GET /category-types
	ListLiquidityTypes(ctx context.Context, q Query) (Page[finance.LiquidityType], error) // GET /liquidity-types
	ListTransactions(ctx context.Context, page int) (TransactionPage, error)              // GET /transactions
	CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error)
	CreateCategory(ctx context.Context, c finance.Category) (finance.Category, error)
	UpdateCategory(ctx context.Context, c finance.Category) (finance.Category, error)
	DeleteCategory(ctx context.Context, id int) error
	CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	UpdateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	DeleteAccount(ctx context.Context, id int) error
}

// TokenFunc returns the bearer token of the session behind ctx.
type TokenFunc func(ctx context.Context) (string, error)

type ClientImpl struct {
	baseURL   string
	timeout   time.Duration
	token     TokenFunc
	transport http.RoundTripper
	inFlight  singleflight.Group
}

type ClientOption func(*ClientImpl)

// WithTransport replaces the HTTP transport underneath the bearer token layer.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *ClientImpl) {
		c.transport = rt
	}
}

func NewClient(baseURL string, timeout time.Duration, token TokenFunc, opts ...ClientOption) *ClientImpl {
	c := &ClientImpl{
		baseURL: baseURL,
		timeout: timeout,
		token:   token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// prepareClient returns an HTTP client authenticating as the session behind ctx.
func (c *ClientImpl) prepareClient(ctx context.Context) (*http.Client, string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get session token: %w", err)
	}
	if token == "" {
		log.Debug("session has no token, authentication is required")
		return nil, "", ErrUnauthenticated
	}

	base := &http.Client{Timeout: c.timeout, Transport: c.transport}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client.Timeout = c.timeout
	return client, token, nil
}

func (c *ClientImpl) do(ctx context.Context, client *http.Client, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request %s %s: %v", method, url, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("Failed to read response body: %v", err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
		log.Errorf("%s %s: %v", method, url, err)
		return nil, err
	}
	return data, nil
}

// get issues a GET, collapsing identical requests of the same session that
// are in flight at the same time.
func get[T any](ctx context.Context, c *ClientImpl, path string, params url.Values) (T, error) {
	var result T
	client, token, err := c.prepareClient(ctx)
	if err != nil {
		return result, err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	// The shared request outlives any single caller; each caller stops
	// waiting when its own context is done.
	detached := context.WithoutCancel(ctx)
	ch := c.inFlight.DoChan(token+" "+u, func() (any, error) {
		return c.do(detached, client, http.MethodGet, u, nil)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return result, res.Err
	}
	if res.Shared {
		log.Debugf("shared in-flight response for %s", u)
	}

	if err := json.Unmarshal(res.Val.([]byte), &result); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return result, err
	}
	return result, nil
}

func send[T any](ctx context.Context, c *ClientImpl, method, path string, body any) (T, error) {
	var result T
	client, _, err := c.prepareClient(ctx)
	if err != nil {
		return result, err
	}

	data, err := c.do(ctx, client, method, c.baseURL+path, body)
	if err != nil {
		return result, err
	}
	if len(data) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return result, err
	}
	return result, nil
}

func (c *ClientImpl) ListAssets(ctx context.Context, q Query) (Page[finance.Asset], error) {
	return get[Page[finance.Asset]](ctx, c, "/assets", q.values())
}

func (c *ClientImpl) ListAccounts(ctx context.Context, q Query) (Page[finance.Account], error) {
	return get[Page[finance.Account]](ctx, c, "/accounts", q.values())
}

func (c *ClientImpl) ListCategories(ctx context.Context, q Query) (Page[finance.Category], error) {
	return get[Page[finance.Category]](ctx, c, "/categories", q.values())
}

func (c *ClientImpl) ListAccountTypes(ctx context.Context, q Query) (Page[finance.AccountType], error) {
	return get[Page[finance.AccountType]](ctx, c, "/account-types", q.values())
}

func (c *ClientImpl) ListCategoryTypes(ctx context.Context, q Query) (Page[finance.CategoryType], error) {
	return get[Page[finance.CategoryType]](ctx, c, "/category-types", q.values())
}

func (c *ClientImpl) ListLiquidityTypes(ctx context.Context, q Query) (Page[finance.LiquidityType], error) {
	return get[Page[finance.LiquidityType]](ctx, c, "/liquidity-types", q.values())
}

func (c *ClientImpl) ListTransactions(ctx context.Context, page int) (TransactionPage, error) {
	return get[TransactionPage](ctx, c, "/transactions", Query{Page: page}.values())
}

func (c *ClientImpl) CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, error) {
	return send[finance.Transaction](ctx, c, http.MethodPost, "/transactions", tx)
}

func (c *ClientImpl) CreateCategory(ctx context.Context, category finance.Category) (finance.Category, error) {
	return send[finance.Category](ctx, c, http.MethodPost, "/categories", category)
}

func (c *ClientImpl) UpdateCategory(ctx context.Context, category finance.Category) (finance.Category, error) {
	return send[finance.Category](ctx, c, http.MethodPut, fmt.Sprintf("/categories/%d", category.Id), category)
}

func (c *ClientImpl) DeleteCategory(ctx context.Context, id int) error {
	_, err := send[struct{}](ctx, c, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil)
	return err
}

func (c *ClientImpl) CreateAccount(ctx context.Context, account finance.Account) (finance.Account, error) {
	return send[finance.Account](ctx, c, http.MethodPost, "/accounts", account)
}

func (c *ClientImpl) UpdateAccount(ctx context.Context, account finance.Account) (finance.Account, error) {
	return send[finance.Account](ctx, c, http.MethodPut, fmt.Sprintf("/accounts/%d", account.Id), account)
}

func (c *ClientImpl) DeleteAccount(ctx context.Context, id int) error {
	_, err := send[struct{}](ctx, c, http.MethodDelete, fmt.Sprintf("/accounts/%d", id), nil)
	return err
}
