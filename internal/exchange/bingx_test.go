package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"btcdesk/models"
)

func TestSignedQuerySortsParameters(t *testing.T) {
	query := signedQuery(map[string]string{
		"timestamp": "1700000000000",
		"symbol":    "BTC-USDT",
		"side":      "BUY",
	}, "secret")

	wantPrefix := "side=BUY&symbol=BTC-USDT&timestamp=1700000000000&signature="
	if !strings.HasPrefix(query, wantPrefix) {
		t.Errorf("signedQuery() = %q, want prefix %q", query, wantPrefix)
	}
}

func TestSignedQuerySignature(t *testing.T) {
	secret := "test-secret"
	query := signedQuery(map[string]string{"a": "1", "b": "2"}, secret)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("a=1&b=2"))
	want := "a=1&b=2&signature=" + hex.EncodeToString(mac.Sum(nil))

	if query != want {
		t.Errorf("signedQuery() = %q, want %q", query, want)
	}
}

func TestSignedQueryDeterministic(t *testing.T) {
	params := map[string]string{"symbol": "BTC-USDT", "quantity": "0.001234", "type": "MARKET"}
	if signedQuery(params, "k") != signedQuery(params, "k") {
		t.Error("signedQuery() not deterministic for identical input")
	}
}

func TestOrderSides(t *testing.T) {
	tests := []struct {
		name         string
		side         models.Side
		wantOrder    string
		wantPosition string
	}{
		{name: "Long maps to buy", side: models.Long, wantOrder: "BUY", wantPosition: "LONG"},
		{name: "Short maps to sell", side: models.Short, wantOrder: "SELL", wantPosition: "SHORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, position := orderSides(tt.side)
			if order != tt.wantOrder || position != tt.wantPosition {
				t.Errorf("orderSides(%s) = (%s, %s), want (%s, %s)",
					tt.side, order, position, tt.wantOrder, tt.wantPosition)
			}
		})
	}
}
