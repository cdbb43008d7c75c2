package wechatpay

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haoche-next/internal/constants"
)

func TestParseAndValidateConfig(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"appid":                "wx1234567890",
		"mchid":                "1900000109",
		"merchant_serial_no":   "ABC123456789",
		"merchant_private_key": buildTestPrivateKey(),
		"api_v3_key":           "12345678901234567890123456789012",
		"notify_url":           "https://example.com/api/v1/payments/callback/wechat",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("base url should fallback to default, got: %s", cfg.BaseURL)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
}

func TestValidateConfigRejectsBadPrivateKey(t *testing.T) {
	cfg, err := ParseConfig(map[string]interface{}{
		"appid":                "wx1234567890",
		"mchid":                "1900000109",
		"merchant_serial_no":   "ABC123456789",
		"merchant_private_key": "not-a-pem-key",
		"api_v3_key":           "12345678901234567890123456789012",
	})
	if err != nil {
		t.Fatalf("parse config failed: %v", err)
	}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected private key error")
	}
}

func TestCreatePaymentNativeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v3/pay/transactions/native" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body failed: %v", err)
		}
		if payload["out_trade_no"] != "HCP20260828100000123456" {
			t.Fatalf("unexpected out_trade_no: %v", payload["out_trade_no"])
		}
		if payload["attach"] != "1001" {
			t.Fatalf("unexpected attach: %v", payload["attach"])
		}
		amount, ok := payload["amount"].(map[string]interface{})
		if !ok {
			t.Fatalf("amount payload missing")
		}
		if amount["total"] != float64(500000) {
			t.Fatalf("unexpected amount total: %v", amount["total"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code_url": "weixin://wxpay/bizpayurl?pr=abc123",
		})
	}))
	defer server.Close()

	cfg := buildTestConfig(server.URL)
	result, err := CreatePayment(context.Background(), cfg, CreateInput{
		PaymentNo:   "HCP20260828100000123456",
		PaymentID:   1001,
		Amount:      "5000.00",
		Description: "二手车定金",
		ClientIP:    "203.0.113.10",
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if result.QRCode != "weixin://wxpay/bizpayurl?pr=abc123" {
		t.Fatalf("unexpected qr code: %s", result.QRCode)
	}
}

func TestCreatePaymentRejectsSubFenAmount(t *testing.T) {
	cfg := buildTestConfig("https://api.mch.weixin.qq.com")
	_, err := CreatePayment(context.Background(), cfg, CreateInput{
		PaymentNo: "HCP20260828100000123457",
		PaymentID: 1002,
		Amount:    "0.001",
	})
	if err == nil {
		t.Fatalf("expected sub-fen amount to be rejected")
	}
}

func TestRefundAmountGuard(t *testing.T) {
	cfg := buildTestConfig("https://api.mch.weixin.qq.com")
	_, err := Refund(context.Background(), cfg, RefundInput{
		PaymentNo:    "HCP20260828100000123456",
		RefundNo:     "HCR20260828100000000001",
		TotalAmount:  "5000.00",
		RefundAmount: "6000.00",
	})
	if err == nil {
		t.Fatalf("expected refund over total to be rejected")
	}
}

func TestToPaymentStatusMapping(t *testing.T) {
	cases := map[string]string{
		"SUCCESS":    constants.PaymentStatusPaid,
		"REFUND":     constants.PaymentStatusRefunded,
		"NOTPAY":     constants.PaymentStatusPending,
		"USERPAYING": constants.PaymentStatusPending,
		"CLOSED":     constants.PaymentStatusClosed,
		"PAYERROR":   constants.PaymentStatusClosed,
	}
	for state, expected := range cases {
		got, ok := ToPaymentStatus(state)
		if !ok || got != expected {
			t.Fatalf("trade_state %s: expected %s, got %s ok=%v", state, expected, got, ok)
		}
	}
	if _, ok := ToPaymentStatus("SOMETHING"); ok {
		t.Fatalf("expected unknown trade_state to be rejected")
	}
}

func TestParsePaymentIDFromAttach(t *testing.T) {
	if id, ok := ParsePaymentIDFromAttach("1001"); !ok || id != 1001 {
		t.Fatalf("expected 1001, got %d ok=%v", id, ok)
	}
	if _, ok := ParsePaymentIDFromAttach(""); ok {
		t.Fatalf("expected empty attach to fail")
	}
	if _, ok := ParsePaymentIDFromAttach("abc"); ok {
		t.Fatalf("expected non-numeric attach to fail")
	}
}

func buildTestConfig(baseURL string) *Config {
	return &Config{
		AppID:              "wx1234567890",
		MerchantID:         "1900000109",
		MerchantSerialNo:   "ABC123456789",
		MerchantPrivateKey: buildTestPrivateKey(),
		APIV3Key:           "12345678901234567890123456789012",
		NotifyURL:          "https://example.com/api/v1/payments/callback/wechat",
		BaseURL:            baseURL,
	}
}

func buildTestPrivateKey() string {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	privateKeyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		panic(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyDER}))
}
