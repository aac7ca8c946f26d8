package exchange

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
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "btcdesk/internal/platform/http"
	"btcdesk/models"
)

const bingxBaseURL = "https://open-api.bingx.com"

// BingXClient submits perpetual swap orders to BingX. Requests are
// signed with HMAC-SHA256 over the sorted query string. Order calls
// never retry; only the connectivity check does.
type BingXClient struct {
	apiKey    string
	secretKey string
	symbol    string
	http      *platformhttp.Client
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBingXClient creates an order client for one perpetual symbol
// (BingX format, e.g. "BTC-USDT").
func NewBingXClient(apiKey, secretKey, symbol string, httpClient *platformhttp.Client) *BingXClient {
	return &BingXClient{
		apiKey:    apiKey,
		secretKey: secretKey,
		symbol:    symbol,
		http:      httpClient,
		logger:    log.With().Str("component", "bingx_client").Logger(),
		now:       time.Now,
	}
}

type bingxResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// PlaceOrder sets the leverage and submits a market order, returning
// the exchange order id. A failed call is surfaced as-is; the caller
// must not retry it.
func (c *BingXClient) PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	side, positionSide := orderSides(req.Side)

	if err := c.setLeverage(ctx, positionSide, req.Leverage); err != nil {
		return "", fmt.Errorf("setting leverage: %w", err)
	}

	params := map[string]string{
		"symbol":       c.symbol,
		"side":         side,
		"positionSide": positionSide,
		"type":         "MARKET",
		"quantity":     fmt.Sprintf("%.6f", req.Quantity),
	}
	if req.ClientOrderID != "" {
		params["clientOrderId"] = req.ClientOrderID
	}

	data, err := c.call(ctx, http.MethodPost, "/openApi/swap/v2/trade/order", params, false)
	if err != nil {
		return "", err
	}

	var payload struct {
		Order struct {
			OrderID int64 `json:"orderId"`
		} `json:"order"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parsing order response: %w", err)
	}

	orderID := fmt.Sprintf("%d", payload.Order.OrderID)
	c.logger.Info().
		Str("order_id", orderID).
		Str("side", side).
		Float64("quantity", req.Quantity).
		Msg("Order placed")
	return orderID, nil
}

// ClosePosition submits a market order on the opposite side of the
// held position.
func (c *BingXClient) ClosePosition(ctx context.Context, symbol string, side models.Side) error {
	closeSide := "SELL"
	positionSide := "LONG"
	if side == models.Short {
		closeSide = "BUY"
		positionSide = "SHORT"
	}

	_, err := c.call(ctx, http.MethodPost, "/openApi/swap/v2/trade/closeAllPositions", map[string]string{
		"symbol":       symbol,
		"side":         closeSide,
		"positionSide": positionSide,
	}, false)
	if err != nil {
		return fmt.Errorf("closing position: %w", err)
	}

	c.logger.Info().Str("symbol", symbol).Str("side", string(side)).Msg("Position close submitted")
	return nil
}

// TestConnectivity performs an idempotent balance query to verify the
// credentials and exchange reachability. This is the only call that
// may retry.
func (c *BingXClient) TestConnectivity(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "/openApi/swap/v2/user/balance", nil, true)
	if err != nil {
		return fmt.Errorf("connectivity test: %w", err)
	}
	return nil
}

func (c *BingXClient) setLeverage(ctx context.Context, positionSide string, leverage float64) error {
	_, err := c.call(ctx, http.MethodPost, "/openApi/swap/v2/trade/leverage", map[string]string{
		"symbol":   c.symbol,
		"side":     positionSide,
		"leverage": fmt.Sprintf("%.0f", leverage),
	}, false)
	return err
}

func (c *BingXClient) call(ctx context.Context, method, path string, params map[string]string, idempotent bool) (json.RawMessage, error) {
	if params == nil {
		params = map[string]string{}
	}
	params["timestamp"] = fmt.Sprintf("%d", c.now().UnixMilli())

	query := signedQuery(params, c.secretKey)
	reqURL := bingxBaseURL + path + "?" + query

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-BX-APIKEY", c.apiKey)

	var resp *http.Response
	if idempotent {
		resp, err = c.http.DoIdempotent(ctx, req)
	} else {
		resp, err = c.http.Do(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var parsed bingxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("bingx error %d: %s", parsed.Code, parsed.Msg)
	}
	return parsed.Data, nil
}

// signedQuery builds the canonical sorted query string and appends its
// HMAC-SHA256 signature.
func signedQuery(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	paramString := sb.String()

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paramString))
	signature := hex.EncodeToString(mac.Sum(nil))

	return paramString + "&signature=" + url.QueryEscape(signature)
}

func orderSides(side models.Side) (orderSide, positionSide string) {
	if side == models.Short {
		return "SELL", "SHORT"
	}
	return "BUY", "LONG"
}
