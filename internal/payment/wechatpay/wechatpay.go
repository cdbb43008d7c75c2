package wechatpay

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/haoche-next/internal/constants"

	"github.com/shopspring/decimal"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
)

var (
	ErrConfigInvalid    = errors.New("wechatpay config invalid")
	ErrRequestFailed    = errors.New("wechatpay request failed")
	ErrResponseInvalid  = errors.New("wechatpay response invalid")
	ErrSignatureInvalid = errors.New("wechatpay signature invalid")
)

const defaultBaseURL = "https://api.mch.weixin.qq.com"

// Config 微信支付商户配置
type Config struct {
	AppID              string `json:"appid"`
	MerchantID         string `json:"mchid"`
	MerchantSerialNo   string `json:"merchant_serial_no"`
	MerchantPrivateKey string `json:"merchant_private_key"`
	APIV3Key           string `json:"api_v3_key"`
	NotifyURL          string `json:"notify_url"`
	BaseURL            string `json:"base_url"`
}

// CreateInput 创建定金支付单输入
type CreateInput struct {
	PaymentNo   string
	PaymentID   uint
	Amount      string
	Description string
	ClientIP    string
	NotifyURL   string
}

// CreateResult 创建支付单返回，定金收款统一走 Native 扫码
type CreateResult struct {
	QRCode   string
	PrepayID string
	Raw      map[string]interface{}
}

// QueryResult 查询支付单返回
type QueryResult struct {
	PaymentNo     string
	TransactionID string
	Status        string
	Amount        string
	Attach        string
	PaidAt        *time.Time
	Raw           map[string]interface{}
}

// RefundInput 退款输入
type RefundInput struct {
	PaymentNo    string
	RefundNo     string
	TotalAmount  string
	RefundAmount string
	Reason       string
}

// RefundResult 退款返回
type RefundResult struct {
	RefundID string
	Status   string
	Raw      map[string]interface{}
}

// WebhookResult 回调验签解密后的结果
type WebhookResult struct {
	EventType     string
	PaymentNo     string
	TransactionID string
	Status        string
	Amount        string
	Attach        string
	PaidAt        *time.Time
	Raw           map[string]interface{}
}

// ParseConfig 从配置映射解析商户配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.normalize()
	return &cfg, nil
}

// ValidateConfig 校验商户配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return fmt.Errorf("%w: appid is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return fmt.Errorf("%w: mchid is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MerchantSerialNo) == "" {
		return fmt.Errorf("%w: merchant_serial_no is required", ErrConfigInvalid)
	}
	if len(strings.TrimSpace(cfg.APIV3Key)) != 32 {
		return fmt.Errorf("%w: api_v3_key must be 32 bytes", ErrConfigInvalid)
	}
	if err := validatePrivateKey(cfg.MerchantPrivateKey); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.NotifyURL) != "" {
		if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.NotifyURL)); err != nil {
			return fmt.Errorf("%w: notify_url is invalid", ErrConfigInvalid)
		}
	}
	return nil
}

// CreatePayment 创建 Native 扫码支付单
func CreatePayment(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PaymentNo) == "" || strings.TrimSpace(input.Amount) == "" {
		return nil, fmt.Errorf("%w: payment input is invalid", ErrConfigInvalid)
	}
	amountFen, err := convertAmountToFen(input.Amount)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := createAPIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifyURL := strings.TrimSpace(input.NotifyURL)
	if notifyURL == "" {
		notifyURL = cfg.NotifyURL
	}

	payload := map[string]interface{}{
		"appid":        cfg.AppID,
		"mchid":        cfg.MerchantID,
		"description":  buildDescription(input.Description, input.PaymentNo),
		"out_trade_no": input.PaymentNo,
		"attach":       strconv.FormatUint(uint64(input.PaymentID), 10),
		"notify_url":   notifyURL,
		"amount": map[string]interface{}{
			"total":    amountFen,
			"currency": "CNY",
		},
	}
	if clientIP := normalizeClientIP(input.ClientIP); clientIP != "" {
		payload["scene_info"] = map[string]interface{}{
			"payer_client_ip": clientIP,
		}
	}

	requestURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/v3/pay/transactions/native"
	raw, err := doPostJSON(ctx, client, requestURL, payload)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Raw: raw}
	if prepayID := strings.TrimSpace(readString(raw, "prepay_id")); prepayID != "" {
		result.PrepayID = prepayID
	}
	codeURL := strings.TrimSpace(readString(raw, "code_url"))
	if codeURL == "" {
		return nil, fmt.Errorf("%w: missing code_url", ErrResponseInvalid)
	}
	result.QRCode = codeURL
	return result, nil
}

// QueryPaymentByPaymentNo 根据支付单号查询微信侧状态
func QueryPaymentByPaymentNo(ctx context.Context, cfg *Config, paymentNo string) (*QueryResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, fmt.Errorf("%w: payment no is required", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := createAPIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	requestURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") +
		"/v3/pay/transactions/out-trade-no/" + url.PathEscape(paymentNo) +
		"?mchid=" + url.QueryEscape(cfg.MerchantID)

	raw, err := doGetJSON(ctx, client, requestURL)
	if err != nil {
		return nil, err
	}

	status, ok := ToPaymentStatus(readString(raw, "trade_state"))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported trade_state", ErrResponseInvalid)
	}
	amount := ""
	if amountFen, ok := readInt64(raw, "amount", "total"); ok {
		amount = fenToAmountString(amountFen)
	}
	return &QueryResult{
		PaymentNo:     pickFirstNonEmpty(readString(raw, "out_trade_no"), paymentNo),
		TransactionID: readString(raw, "transaction_id"),
		Status:        status,
		Amount:        amount,
		Attach:        readString(raw, "attach"),
		PaidAt:        parseTransactionTime(readString(raw, "success_time")),
		Raw:           raw,
	}, nil
}

// Refund 发起定金退款
func Refund(ctx context.Context, cfg *Config, input RefundInput) (*RefundResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PaymentNo) == "" || strings.TrimSpace(input.RefundNo) == "" {
		return nil, fmt.Errorf("%w: refund input is invalid", ErrConfigInvalid)
	}
	refundFen, err := convertAmountToFen(input.RefundAmount)
	if err != nil {
		return nil, err
	}
	totalFen, err := convertAmountToFen(input.TotalAmount)
	if err != nil {
		return nil, err
	}
	if refundFen > totalFen {
		return nil, fmt.Errorf("%w: refund amount exceeds total", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := createAPIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"out_trade_no":  input.PaymentNo,
		"out_refund_no": input.RefundNo,
		"amount": map[string]interface{}{
			"refund":   refundFen,
			"total":    totalFen,
			"currency": "CNY",
		},
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		payload["reason"] = reason
	}

	requestURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + "/v3/refund/domestic/refunds"
	raw, err := doPostJSON(ctx, client, requestURL, payload)
	if err != nil {
		return nil, err
	}
	return &RefundResult{
		RefundID: readString(raw, "refund_id"),
		Status:   readString(raw, "status"),
		Raw:      raw,
	}, nil
}

// VerifyAndDecodeWebhook 验签并解密微信回调
func VerifyAndDecodeWebhook(ctx context.Context, cfg *Config, headers map[string]string, body []byte) (*WebhookResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty webhook body", ErrResponseInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	privateKey, err := parsePrivateKey(cfg.MerchantPrivateKey)
	if err != nil {
		return nil, err
	}

	mgr := downloader.MgrInstance()
	if !mgr.HasDownloader(ctx, cfg.MerchantID) {
		if err := mgr.RegisterDownloaderWithPrivateKey(ctx, privateKey, cfg.MerchantSerialNo, cfg.MerchantID, cfg.APIV3Key); err != nil {
			return nil, fmt.Errorf("%w: register certificate downloader failed", ErrRequestFailed)
		}
	}

	verifier := verifiers.NewSHA256WithRSAVerifier(mgr.GetCertificateVisitor(cfg.MerchantID))
	handler, err := notify.NewRSANotifyHandler(cfg.APIV3Key, verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: init notify handler failed", ErrConfigInvalid)
	}

	notifyReq, transaction, err := parseNotifyTransaction(ctx, handler, headers, body)
	if err != nil {
		return nil, err
	}
	status, ok := ToPaymentStatus(pointerString(transaction.TradeState))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported trade_state", ErrResponseInvalid)
	}

	amount := ""
	if transaction.Amount != nil && transaction.Amount.Total != nil {
		amount = fenToAmountString(*transaction.Amount.Total)
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode webhook body failed", ErrResponseInvalid)
	}
	if notifyReq != nil && notifyReq.Resource != nil {
		if plaintext := strings.TrimSpace(notifyReq.Resource.Plaintext); plaintext != "" {
			resourcePlain := map[string]interface{}{}
			if err := json.Unmarshal([]byte(plaintext), &resourcePlain); err == nil {
				raw["resource_plaintext"] = resourcePlain
			}
		}
	}

	return &WebhookResult{
		EventType:     strings.TrimSpace(notifyReq.EventType),
		PaymentNo:     strings.TrimSpace(pointerString(transaction.OutTradeNo)),
		TransactionID: strings.TrimSpace(pointerString(transaction.TransactionId)),
		Status:        status,
		Amount:        amount,
		Attach:        strings.TrimSpace(pointerString(transaction.Attach)),
		PaidAt:        parseTransactionTime(pointerString(transaction.SuccessTime)),
		Raw:           raw,
	}, nil
}

// ParsePaymentIDFromAttach 从 attach 字段中解析 payment_id
func ParsePaymentIDFromAttach(raw string) (uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

// ToPaymentStatus 将微信交易状态映射到系统支付状态
func ToPaymentStatus(tradeState string) (string, bool) {
	state := strings.ToUpper(strings.TrimSpace(tradeState))
	switch state {
	case "SUCCESS":
		return constants.PaymentStatusPaid, true
	case "REFUND":
		return constants.PaymentStatusRefunded, true
	case "NOTPAY", "USERPAYING":
		return constants.PaymentStatusPending, true
	case "CLOSED", "REVOKED", "PAYERROR":
		return constants.PaymentStatusClosed, true
	default:
		return "", false
	}
}

func createAPIClient(ctx context.Context, cfg *Config) (*core.Client, error) {
	privateKey, err := parsePrivateKey(cfg.MerchantPrivateKey)
	if err != nil {
		return nil, err
	}
	client, err := core.NewClient(ctx,
		option.WithMerchantCredential(cfg.MerchantID, cfg.MerchantSerialNo, privateKey),
		option.WithoutValidator(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: init client failed", ErrConfigInvalid)
	}
	return client, nil
}

func doPostJSON(ctx context.Context, client *core.Client, requestURL string, payload map[string]interface{}) (map[string]interface{}, error) {
	result, err := client.Post(ctx, requestURL, payload)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	return parseAPIResult(result)
}

func doGetJSON(ctx context.Context, client *core.Client, requestURL string) (map[string]interface{}, error) {
	result, err := client.Get(ctx, requestURL)
	if err != nil {
		return nil, wrapRequestError(err)
	}
	return parseAPIResult(result)
}

func wrapRequestError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrResponseInvalid, strings.TrimSpace(apiErr.Message))
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func parseAPIResult(result *core.APIResult) (map[string]interface{}, error) {
	if result == nil || result.Response == nil || result.Response.Body == nil {
		return nil, fmt.Errorf("%w: empty response", ErrResponseInvalid)
	}
	defer result.Response.Body.Close()

	respBody, readErr := io.ReadAll(result.Response.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if result.Response.StatusCode < 200 || result.Response.StatusCode >= 300 {
		if len(respBody) > 0 {
			return nil, fmt.Errorf("%w: status %d body %s", ErrResponseInvalid, result.Response.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, result.Response.StatusCode)
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrResponseInvalid)
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func parseNotifyTransaction(ctx context.Context, handler *notify.Handler, headers map[string]string, body []byte) (*notify.Request, *payments.Transaction, error) {
	requestURL := "https://notify.wechat.example/callback"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: build webhook request failed", ErrResponseInvalid)
	}
	for key, value := range headers {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		req.Header.Set(key, value)
	}

	content := new(payments.Transaction)
	notifyReq, err := handler.ParseNotifyRequest(ctx, req, content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return notifyReq, content, nil
}

func convertAmountToFen(amount string) (int64, error) {
	amountDec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	if amountDec.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	fen := amountDec.Mul(decimal.NewFromInt(100))
	if !fen.Equal(fen.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision exceeds fen", ErrConfigInvalid)
	}
	return fen.IntPart(), nil
}

func fenToAmountString(amountFen int64) string {
	return decimal.NewFromInt(amountFen).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func buildDescription(description, paymentNo string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "二手车定金 " + paymentNo
	}
	runes := []rune(description)
	if len(runes) > 127 {
		description = string(runes[:127])
	}
	return description
}

func normalizeClientIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	if net.ParseIP(raw) == nil {
		return ""
	}
	return raw
}

func parseTransactionTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func pickFirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func pointerString(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

func readString(raw map[string]interface{}, keys ...string) string {
	current := raw
	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			if str, ok := value.(string); ok {
				return strings.TrimSpace(str)
			}
			return ""
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}

func readInt64(raw map[string]interface{}, keys ...string) (int64, bool) {
	current := raw
	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return 0, false
		}
		if i == len(keys)-1 {
			switch typed := value.(type) {
			case float64:
				return int64(typed), true
			case int64:
				return typed, true
			case json.Number:
				parsed, err := typed.Int64()
				if err != nil {
					return 0, false
				}
				return parsed, true
			}
			return 0, false
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return 0, false
		}
		current = next
	}
	return 0, false
}

func validatePrivateKey(raw string) error {
	if _, err := parsePrivateKey(raw); err != nil {
		return err
	}
	return nil
}

func parsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: merchant_private_key is required", ErrConfigInvalid)
	}
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, fmt.Errorf("%w: merchant_private_key is not valid pem", ErrConfigInvalid)
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, fmt.Errorf("%w: merchant_private_key is not rsa", ErrConfigInvalid)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: merchant_private_key parse failed", ErrConfigInvalid)
}

func (c *Config) normalize() {
	c.AppID = strings.TrimSpace(c.AppID)
	c.MerchantID = strings.TrimSpace(c.MerchantID)
	c.MerchantSerialNo = strings.TrimSpace(c.MerchantSerialNo)
	c.APIV3Key = strings.TrimSpace(c.APIV3Key)
	c.NotifyURL = strings.TrimSpace(c.NotifyURL)
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
}
