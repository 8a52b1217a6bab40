package bol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

const (
	defaultAPIBaseURL   = "https://api.bol.com"
	defaultTokenURL     = "https://login.bol.com/token?grant_type=client_credentials"
	defaultHTTPTimeout  = 30 * time.Second
	acceptJSON          = "application/vnd.retailer.v10+json"
	acceptPDF           = "application/vnd.retailer.v10+pdf"
	contentTypeJSON     = "application/vnd.retailer.v10+json"
	tokenRefreshMargin  = 30 * time.Second
	processPollInterval = time.Second
	processPollAttempts = 15
)

// Client — клиент Retailer API bol.com для одного аккаунта продавца.
// Покрывает ровно то, что нужно конвейеру: список открытых заказов и
// получение лейблов отправки.
type Client struct {
	httpClient *http.Client
	apiBaseURL string
	tokenURL   string

	clientID     string
	clientSecret string

	log *log.Entry

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var (
	_ domain.OrderSource = (*Client)(nil)
	_ domain.LabelAPI    = (*Client)(nil)
)

// Option настраивает клиент.
type Option func(*Client)

// WithBaseURL переопределяет адрес API. Используется тестами.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.apiBaseURL = strings.TrimRight(base, "/") }
}

// WithTokenURL переопределяет адрес выдачи токенов. Используется тестами.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// WithHTTPClient переопределяет HTTP-клиент.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient создаёт клиент с учётными данными client-credentials.
func NewClient(clientID, clientSecret string, logger *log.Entry, opts ...Option) *Client {
	if logger == nil {
		logger = log.WithField("component", "bol_client")
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		apiBaseURL:   defaultAPIBaseURL,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token возвращает действующий access token, при необходимости обновляя его.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshMargin)) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request token: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrSourceUnavailable)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.log.Debug("access token refreshed")
	return c.accessToken, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body io.Reader, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.apiBaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrSourceUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrSourceUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}

// FetchOpenOrders возвращает все открытые заказы аккаунта, обходя страницы
// по каждому способу исполнения.
func (c *Client) FetchOpenOrders(ctx context.Context) ([]domain.Order, error) {
	var all []domain.Order
	for _, method := range []domain.FulfilmentMethod{domain.FulfilmentRetailer, domain.FulfilmentMarketplace} {
		orders, err := c.fetchOpenOrdersByMethod(ctx, method)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)
	}

	c.log.WithField("orders", len(all)).Info("open orders fetched")
	return all, nil
}

func (c *Client) fetchOpenOrdersByMethod(ctx context.Context, method domain.FulfilmentMethod) ([]domain.Order, error) {
	var out []domain.Order
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("status", "OPEN")
		query.Set("fulfilment-method", string(method))
		query.Set("page", strconv.Itoa(page))

		var dto reducedOrdersDTO
		if err := c.doJSON(ctx, http.MethodGet, "/retailer/orders", query, nil, &dto); err != nil {
			return nil, fmt.Errorf("fetch open orders page %d: %w", page, err)
		}
		if len(dto.Orders) == 0 {
			break
		}
		for _, raw := range dto.Orders {
			order, err := raw.toDomain(method)
			if err != nil {
				c.log.WithError(err).WithField("order_id", raw.OrderID).Warn("skipping malformed order")
				continue
			}
			out = append(out, order)
		}
	}
	return out, nil
}

type shippingLabelRequest struct {
	OrderItems []shippingLabelItem `json:"orderItems"`
}

type shippingLabelItem struct {
	OrderItemID string `json:"orderItemId"`
	Quantity    int    `json:"quantity"`
}

type processStatusDTO struct {
	ProcessStatusID string `json:"processStatusId"`
	Status          string `json:"status"`
	EntityID        string `json:"entityId"`
	ErrorMessage    string `json:"errorMessage"`
}

// CreateShippingLabel запрашивает лейбл для позиции заказа и дожидается
// завершения асинхронного процесса на стороне bol.
func (c *Client) CreateShippingLabel(ctx context.Context, orderItemID string, quantity int) (string, error) {
	payload, err := json.Marshal(shippingLabelRequest{
		OrderItems: []shippingLabelItem{{OrderItemID: orderItemID, Quantity: quantity}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal shipping label request: %w", err)
	}

	var status processStatusDTO
	if err := c.doJSON(ctx, http.MethodPost, "/retailer/shipping-labels", nil, strings.NewReader(string(payload)), &status); err != nil {
		return "", fmt.Errorf("create shipping label for item %s: %w", orderItemID, err)
	}

	return c.awaitProcess(ctx, status)
}

// awaitProcess опрашивает process-status до SUCCESS или исчерпания попыток.
func (c *Client) awaitProcess(ctx context.Context, status processStatusDTO) (string, error) {
	for attempt := 0; attempt < processPollAttempts; attempt++ {
		switch status.Status {
		case "SUCCESS":
			if status.EntityID == "" {
				return "", fmt.Errorf("process %s succeeded without entity id", status.ProcessStatusID)
			}
			return status.EntityID, nil
		case "FAILURE", "TIMEOUT":
			return "", fmt.Errorf("shipping label process %s failed: %s", status.ProcessStatusID, status.ErrorMessage)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(processPollInterval):
		}

		if err := c.doJSON(ctx, http.MethodGet, "/shared/process-status/"+status.ProcessStatusID, nil, nil, &status); err != nil {
			return "", fmt.Errorf("poll process status %s: %w", status.ProcessStatusID, err)
		}
	}
	return "", fmt.Errorf("shipping label process %s did not finish in time", status.ProcessStatusID)
}

// GetShippingLabel скачивает PDF лейбла по идентификатору.
func (c *Client) GetShippingLabel(ctx context.Context, labelID string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/retailer/shipping-labels/"+labelID, nil)
	if err != nil {
		return nil, fmt.Errorf("build label request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptPDF)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download label %s: %v", domain.ErrSourceUnavailable, labelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("download label %s returned %d: %s", labelID, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return io.ReadAll(resp.Body)
}
