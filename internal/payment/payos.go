// Package payment implements the hosted-checkout payment provider. The
// provider contract is an HMAC-SHA256 signed JSON webhook: the signature is
// computed over the data object serialized as "key=value&key=value" with keys
// in lexicographic order, hex encoded.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tranvd/cinebook/internal/domain"
)

const (
	successCode = "00"

	// Code sent when the customer abandons the hosted checkout page.
	cancelledCode = "02"

	// transactionDateTime format fixed by the provider contract.
	transactionTimeLayout = "2006-01-02 15:04:05"
)

type PayOSProvider struct {
	clientID    string
	apiKey      string
	checksumKey []byte
	endpoint    string
	returnURL   string
	cancelURL   string
	client      *http.Client
}

func NewPayOSProvider(clientID, apiKey, checksumKey, endpoint, returnURL, cancelURL string) *PayOSProvider {
	return &PayOSProvider{
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: []byte(checksumKey),
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		returnURL:   returnURL,
		cancelURL:   cancelURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *PayOSProvider) Name() string {
	return "payos"
}

type checkoutItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type checkoutRequestBody struct {
	OrderCode   int64          `json:"orderCode"`
	Amount      int64          `json:"amount"`
	Description string         `json:"description"`
	Items       []checkoutItem `json:"items"`
	ReturnUrl   string         `json:"returnUrl"`
	CancelUrl   string         `json:"cancelUrl"`
	Signature   string         `json:"signature"`
}

type checkoutResponseBody struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		OrderCode   int64  `json:"orderCode"`
		CheckoutUrl string `json:"checkoutUrl"`
	} `json:"data"`
}

func (p *PayOSProvider) InitiateCheckout(
	ctx context.Context,
	req domain.CheckoutRequest) (*domain.CheckoutSession, error) {

	body := checkoutRequestBody{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount.IntPart(),
		Description: req.Description,
		ReturnUrl:   p.returnURL,
		CancelUrl:   p.cancelURL,
	}

	for _, item := range req.Items {
		body.Items = append(body.Items, checkoutItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price.IntPart(),
		})
	}

	// The checkout signature covers the fields the provider echoes back on
	// its result pages.
	body.Signature = p.sign(fmt.Sprintf(
		"amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		body.Amount, body.CancelUrl, body.Description, body.OrderCode, body.ReturnUrl,
	))

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.endpoint+"/v2/payment-requests",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", p.clientID)
	httpReq.Header.Set("x-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout request failed with status %d", resp.StatusCode)
	}

	var result checkoutResponseBody

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}

	if result.Code != successCode {
		return nil, fmt.Errorf("checkout rejected by provider: %s (%s)", result.Desc, result.Code)
	}

	return &domain.CheckoutSession{
		OrderCode:   result.Data.OrderCode,
		CheckoutURL: result.Data.CheckoutUrl,
	}, nil
}

type webhookEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type webhookData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	Code                string `json:"code"`
	Desc                string `json:"desc"`
}

func (p *PayOSProvider) VerifySignature(payload []byte) error {
	var envelope webhookEnvelope

	err := json.Unmarshal(payload, &envelope)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	if envelope.Signature == "" || len(envelope.Data) == 0 {
		return domain.ErrInvalidSignature
	}

	signed, err := canonicalize(envelope.Data)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	expected, err := hex.DecodeString(envelope.Signature)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, p.checksumKey)
	mac.Write([]byte(signed))

	if !hmac.Equal(mac.Sum(nil), expected) {
		return domain.ErrInvalidSignature
	}

	return nil
}

func (p *PayOSProvider) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var envelope webhookEnvelope

	err := json.Unmarshal(payload, &envelope)
	if err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	var data webhookData

	err = json.Unmarshal(envelope.Data, &data)
	if err != nil {
		return nil, fmt.Errorf("malformed webhook data: %w", err)
	}

	event := &domain.WebhookEvent{
		OrderCode:     data.OrderCode,
		Amount:        decimal.NewFromInt(data.Amount),
		Succeeded:     envelope.Success && data.Code == successCode,
		Cancelled:     data.Code == cancelledCode,
		Code:          data.Code,
		TransactionID: data.Reference,
	}

	if data.TransactionDateTime != "" {
		transactionAt, err := time.ParseInLocation(transactionTimeLayout, data.TransactionDateTime, time.Local)
		if err != nil {
			return nil, fmt.Errorf("malformed transaction time %q: %w", data.TransactionDateTime, err)
		}

		event.TransactionAt = transactionAt
	}

	return event, nil
}

func (p *PayOSProvider) sign(data string) string {
	mac := hmac.New(sha256.New, p.checksumKey)
	mac.Write([]byte(data))

	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalize renders a JSON object as "key=value&key=value" with keys
// sorted lexicographically. Numbers keep their exact JSON representation, so
// decoding goes through json.Number rather than float64.
func canonicalize(raw json.RawMessage) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]any

	err := decoder.Decode(&fields)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
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
		sb.WriteString(stringifyField(fields[k]))
	}

	return sb.String(), nil
}

func stringifyField(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
