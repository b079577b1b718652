package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/config"
	"github.com/Additional-Code/checkout/internal/dto"
	"github.com/Additional-Code/checkout/internal/gateway"
)

func testConfig(baseURL string) config.Gateway {
	return config.Gateway{
		BaseURL:        baseURL,
		CardPath:       "/payments/card",
		TerminalPath:   "/payments/terminal",
		Timeout:        time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}
}

func cardRequest() gateway.ChargeRequest {
	return gateway.ChargeRequest{
		OrderID:        42,
		CustomerID:     7,
		Amount:         decimal.NewFromInt(30),
		Method:         "card",
		IdempotencyKey: "a2f1c9f0-0000-0000-0000-000000000001",
		Card:           &dto.CardDetails{Number: "4111111111111111", Expiry: "12/30", CVV: "123"},
	}
}

func TestCharge_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/payments/card", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction_id":"ext-123"}`))
	}))
	defer srv.Close()

	client := gateway.New(testConfig(srv.URL), zap.NewNop())
	receipt, ok, err := client.Charge(context.Background(), cardRequest())

	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, receipt)
	assert.Equal(t, "ext-123", receipt.ExternalTransactionID)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "a2f1c9f0-0000-0000-0000-000000000001", gotKey)
	assert.Equal(t, "30", gotBody["amount"])
	assert.Equal(t, "ORD-42", gotBody["order_ref"])
	assert.Equal(t, "4111111111111111", gotBody["card_number"])
}

func TestCharge_DeclinedOnEveryAttempt(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := gateway.New(testConfig(srv.URL), zap.NewNop())
	receipt, ok, err := client.Charge(context.Background(), cardRequest())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, receipt)
	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[1], keys[2])
}

func TestCharge_SucceedsAfterDecline(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"transaction_id":"ext-9"}`))
	}))
	defer srv.Close()

	req := cardRequest()
	req.Method = "terminal"
	req.Card = nil
	req.Account = &dto.AccountDetails{AccountNumber: "55501", InvoiceNumber: "INV-42"}

	client := gateway.New(testConfig(srv.URL), zap.NewNop())
	receipt, ok, err := client.Charge(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, receipt)
	assert.Equal(t, "ext-9", receipt.ExternalTransactionID)
	assert.Equal(t, 3, calls)
}

func TestCharge_TransportFaultOnFinalAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every attempt now fails at the transport level

	client := gateway.New(testConfig(srv.URL), zap.NewNop())
	receipt, ok, err := client.Charge(context.Background(), cardRequest())

	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, receipt)
}

func TestCharge_UnsupportedMethod(t *testing.T) {
	client := gateway.New(testConfig("http://localhost:0"), zap.NewNop())
	req := cardRequest()
	req.Method = "bank"

	_, ok, err := client.Charge(context.Background(), req)
	assert.Error(t, err)
	assert.False(t, ok)
}
