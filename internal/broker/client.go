package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"forex-entry-bot/config"
	"forex-entry-bot/internal/market"
	"forex-entry-bot/internal/orders"

	"github.com/rs/zerolog"
)

// Client talks to the broker REST API. It implements orders.Gateway for
// the signed order endpoints and exposes candle and price reads for the
// snapshot provider.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a broker client.
func NewClient(cfg config.BrokerConfig, apiKey, secretKey string) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "broker").Logger(),
	}
}

// Candle is one bar as the broker API returns it.
type Candle struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open,string"`
	High      float64 `json:"high,string"`
	Low       float64 `json:"low,string"`
	Close     float64 `json:"close,string"`
	CloseTime int64   `json:"closeTime"`
}

// orderResponse is the broker's order payload.
type orderResponse struct {
	ClientOrderID string  `json:"clientOrderId"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Price         float64 `json:"price,string"`
	Quantity      float64 `json:"origQty,string"`
	Status        string  `json:"status"`
	TransactTime  int64   `json:"transactTime"`
}

// GetCandles fetches up to limit bars, chronological as the API returns
// them.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v1/candles?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("error fetching candles: %w", err)
	}

	var candles []Candle
	if err := json.Unmarshal(body, &candles); err != nil {
		return nil, fmt.Errorf("error parsing candles: %w", err)
	}

	bars := make([]market.Bar, len(candles))
	for i, k := range candles {
		bars[i] = market.Bar{
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			CloseTime: k.CloseTime,
		}
	}
	return bars, nil
}

// GetCurrentPrice fetches the latest quote for a symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/api/v1/ticker/price?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("error fetching price: %w", err)
	}

	var payload struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price,string"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("error parsing price: %w", err)
	}
	return payload.Price, nil
}

// PendingOrders lists open orders for a symbol.
func (c *Client) PendingOrders(ctx context.Context, symbol string) ([]orders.Order, error) {
	params := map[string]string{"symbol": symbol}

	body, err := c.signedRequest(ctx, http.MethodGet, "/api/v1/openOrders", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching open orders: %w", err)
	}

	var raw []orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error parsing open orders: %w", err)
	}

	out := make([]orders.Order, len(raw))
	for i, r := range raw {
		out[i] = toOrder(r)
	}
	return out, nil
}

// PlaceLimit submits a limit order.
func (c *Client) PlaceLimit(ctx context.Context, order orders.Order) (orders.Order, error) {
	params := map[string]string{
		"symbol":           order.Symbol,
		"side":             string(order.Side),
		"type":             "LIMIT",
		"timeInForce":      "GTC",
		"price":            strconv.FormatFloat(order.Price, 'f', -1, 64),
		"quantity":         strconv.FormatFloat(order.Quantity, 'f', -1, 64),
		"newClientOrderId": order.ClientOrderID,
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/api/v1/order", params)
	if err != nil {
		return orders.Order{}, fmt.Errorf("error placing order: %w", err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return orders.Order{}, fmt.Errorf("error parsing order response: %w", err)
	}

	placed := toOrder(resp)
	c.logger.Info().
		Str("symbol", placed.Symbol).
		Str("side", string(placed.Side)).
		Float64("price", placed.Price).
		Str("client_order_id", placed.ClientOrderID).
		Msg("Limit order placed")
	return placed, nil
}

// Cancel cancels a pending order.
func (c *Client) Cancel(ctx context.Context, symbol, clientOrderID string) error {
	params := map[string]string{
		"symbol":            symbol,
		"origClientOrderId": clientOrderID,
	}
	if _, err := c.signedRequest(ctx, http.MethodDelete, "/api/v1/order", params); err != nil {
		return fmt.Errorf("error cancelling order: %w", err)
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("client_order_id", clientOrderID).
		Msg("Order cancelled")
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) signedRequest(ctx context.Context, method, path string, params map[string]string) ([]byte, error) {
	params["timestamp"] = strconv.FormatInt(time.Now().UnixMilli(), 10)
	params["signature"] = c.sign(params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// sign produces the HMAC-SHA256 signature over the sorted query string.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := ""
	for i, k := range keys {
		if i > 0 {
			query += "&"
		}
		query += k + "=" + params[k]
	}

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func toOrder(r orderResponse) orders.Order {
	status := r.Status
	if status == "" || status == "NEW" {
		status = orders.StatusPending
	}
	return orders.Order{
		ClientOrderID: r.ClientOrderID,
		Symbol:        r.Symbol,
		Side:          market.Side(r.Side),
		Price:         r.Price,
		Quantity:      r.Quantity,
		Status:        status,
		CreatedAt:     time.UnixMilli(r.TransactTime),
	}
}
