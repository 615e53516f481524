package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Client talks to the provider's REST API (orders v2 shape: create, get,
// capture). All calls run behind a circuit breaker so a flapping provider
// fails fast instead of piling up checkout requests.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[*http.Response]
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(baseURL, clientID, clientSecret string, logger *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "payment-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		breaker:      gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:       logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tr.AccessToken
	// refresh one minute early
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrProviderUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return resp, nil
}

func (c *Client) authorizedRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type orderItem struct {
	Name       string      `json:"name"`
	Quantity   string      `json:"quantity"`
	UnitAmount orderAmount `json:"unit_amount"`
}

type purchaseUnit struct {
	Amount orderAmount `json:"amount"`
	Items  []orderItem `json:"items,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string      `json:"id"`
				Status string      `json:"status"`
				Amount orderAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, items []LineItem) (string, error) {
	unit := purchaseUnit{
		Amount: orderAmount{CurrencyCode: "USD", Value: amount.StringFixed(2)},
	}
	for _, item := range items {
		unit.Items = append(unit.Items, orderItem{
			Name:       item.Name,
			Quantity:   fmt.Sprint(item.Quantity),
			UnitAmount: orderAmount{CurrencyCode: "USD", Value: item.UnitPrice.StringFixed(2)},
		})
	}

	resp, err := c.authorizedRequest(ctx, http.MethodPost, "/v2/checkout/orders",
		createOrderRequest{Intent: "CAPTURE", PurchaseUnits: []purchaseUnit{unit}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", c.apiError("create order", resp)
	}

	var or orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", fmt.Errorf("decode create order response: %w", err)
	}
	return or.ID, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, providerOrderID string) (string, error) {
	resp, err := c.authorizedRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+providerOrderID, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrOrderNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.apiError("get order", resp)
	}

	var or orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return "", fmt.Errorf("decode get order response: %w", err)
	}
	return or.Status, nil
}

func (c *Client) CaptureOrder(ctx context.Context, providerOrderID string) (*Capture, error) {
	resp, err := c.authorizedRequest(ctx, http.MethodPost,
		"/v2/checkout/orders/"+providerOrderID+"/capture", struct{}{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrOrderNotFound
	}
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrDeclined
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.apiError("capture order", resp)
	}

	var or orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode capture response: %w", err)
	}

	if len(or.PurchaseUnits) == 0 || len(or.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("capture response for %s carries no capture record", providerOrderID)
	}

	capture := or.PurchaseUnits[0].Payments.Captures[0]
	amount, err := decimal.NewFromString(capture.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("parse captured amount %q: %w", capture.Amount.Value, err)
	}

	return &Capture{
		TransactionID: capture.ID,
		Amount:        amount,
		Status:        or.Status,
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, providerOrderID string) error {
	resp, err := c.authorizedRequest(ctx, http.MethodPost,
		"/v2/checkout/orders/"+providerOrderID+"/void", struct{}{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		return c.apiError("cancel order", resp)
	}
	return nil
}

// apiError logs the raw provider payload server-side and returns a
// sanitized error; raw payloads never reach end users.
func (c *Client) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.logger.Error("provider API error",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body))
	return fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, op, resp.StatusCode)
}
