package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taquilla-cli/model"
)

const (
	DefaultBaseURL     = "http://localhost:8000/api"
	defaultUserAgent   = "taquilla-cli"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond

	IframeTokenHeader = "X-Iframe-Token"
	IdempotencyHeader = "Idempotency-Key"
)

// Client wraps HTTP access to the ticketing platform API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// Auth carries the headers attached to state-mutating requests. The iframe
// token never goes into the URL.
type Auth struct {
	IframeToken    string
	IdempotencyKey string
}

// APIError is returned when the platform responds with a non-2xx status.
// Message holds the server's own explanation when the body had one.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "platform api error"
	}
	if e.Message != "" {
		return fmt.Sprintf("platform api error: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("platform api error: %s: %s", e.Status, e.Body)
}

// DecodeError is returned when a 2xx body is not the expected JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the error represents a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// NewClient creates a new API client. If httpClient is nil, a default client is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   defaultUserAgent,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// TokenInfo looks up what an iframe access token allows.
func (c *Client) TokenInfo(ctx context.Context, token string) (model.TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.TokenInfo{}, errors.New("token is required")
	}
	endpoint := fmt.Sprintf("%s/iframe-tokens/info?token=%s", c.baseURL, url.QueryEscape(token))

	var info model.TokenInfo
	if err := c.getJSON(ctx, endpoint, &info); err != nil {
		return model.TokenInfo{}, err
	}
	return info, nil
}

// Inventory fetches the current availability snapshot.
func (c *Client) Inventory(ctx context.Context) (model.InventorySnapshot, error) {
	endpoint := fmt.Sprintf("%s/concert/inventory", c.baseURL)
	var snapshot model.InventorySnapshot
	if err := c.getJSON(ctx, endpoint, &snapshot); err != nil {
		return model.InventorySnapshot{}, err
	}
	return snapshot, nil
}

// Banks returns the banks accepted for mobile payment and transfers.
func (c *Client) Banks(ctx context.Context) ([]model.Bank, error) {
	endpoint := fmt.Sprintf("%s/payments/banks", c.baseURL)
	var banks []model.Bank
	if err := c.getJSON(ctx, endpoint, &banks); err != nil {
		return nil, err
	}
	if len(banks) == 0 {
		return nil, errors.New("no banks found")
	}
	return banks, nil
}

// ExchangeRate returns the current USD to Bs rate.
func (c *Client) ExchangeRate(ctx context.Context) (model.ExchangeRate, error) {
	endpoint := fmt.Sprintf("%s/payments/exchange-rate", c.baseURL)
	var rate model.ExchangeRate
	if err := c.getJSON(ctx, endpoint, &rate); err != nil {
		return model.ExchangeRate{}, err
	}
	if rate.Rate <= 0 {
		return model.ExchangeRate{}, errors.New("exchange rate unavailable")
	}
	return rate, nil
}

// InitiateP2C starts a mobile payment and returns the commerce routing data.
func (c *Client) InitiateP2C(ctx context.Context, auth Auth, in model.P2CInitiateRequest) (model.P2CInitiation, error) {
	endpoint := fmt.Sprintf("%s/payments/p2c/initiate", c.baseURL)
	var out model.P2CInitiation
	if err := c.postJSON(ctx, endpoint, auth, in, &out); err != nil {
		return model.P2CInitiation{}, err
	}
	return out, nil
}

// ConfirmP2C finalizes a mobile payment with the buyer's bank reference.
func (c *Client) ConfirmP2C(ctx context.Context, auth Auth, in model.P2CConfirmRequest) (model.P2CConfirmation, error) {
	endpoint := fmt.Sprintf("%s/payments/p2c/confirm", c.baseURL)
	var out model.P2CConfirmation
	if err := c.postJSON(ctx, endpoint, auth, in, &out); err != nil {
		return model.P2CConfirmation{}, err
	}
	return out, nil
}

// CancelP2C asks the server to void an initiated transaction.
func (c *Client) CancelP2C(ctx context.Context, auth Auth, in model.P2CCancelRequest) (model.APIMessage, error) {
	endpoint := fmt.Sprintf("%s/payments/p2c/cancel", c.baseURL)
	var out model.APIMessage
	if err := c.postJSON(ctx, endpoint, auth, in, &out); err != nil {
		return model.APIMessage{}, err
	}
	return out, nil
}

// SubmitManualPayment sends a transfer, Zelle or PayPal payment for manual
// review. The proof file, if any, is attached as multipart.
func (c *Client) SubmitManualPayment(ctx context.Context, auth Auth, in model.ManualPaymentRequest) (model.ManualPaymentResult, error) {
	endpoint := fmt.Sprintf("%s/payments/manual", c.baseURL)
	body, contentType, err := encodeManualPayment(in)
	if err != nil {
		return model.ManualPaymentResult{}, err
	}
	var out model.ManualPaymentResult
	if err := c.post(ctx, endpoint, auth, contentType, body, &out); err != nil {
		return model.ManualPaymentResult{}, err
	}
	return out, nil
}

func encodeManualPayment(in model.ManualPaymentRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	seatIDs, err := json.Marshal(nonNil(in.SeatIds))
	if err != nil {
		return nil, "", fmt.Errorf("encode seat ids: %w", err)
	}
	fields := [][2]string{
		{"payment_method", in.PaymentMethod},
		{"buyer_name", in.BuyerName},
		{"buyer_email", in.BuyerEmail},
		{"buyer_phone", in.BuyerPhone},
		{"buyer_identification", in.BuyerIdentification},
		{"ticket_type", in.TicketType},
		{"zone_id", in.ZoneId},
		{"zone_name", in.ZoneName},
		{"seat_ids", string(seatIDs)},
		{"quantity", strconv.Itoa(in.Quantity)},
		{"unit_price", strconv.FormatFloat(in.UnitPrice, 'f', 2, 64)},
		{"total_price", strconv.FormatFloat(in.TotalPrice, 'f', 2, 64)},
		{"is_box_purchase", strconv.FormatBool(in.IsBoxPurchase)},
		{"box_full_purchase", strconv.FormatBool(in.BoxFullPurchase)},
		{"box_code", in.BoxCode},
		{"box_seats_quantity", strconv.Itoa(in.BoxSeatsQuantity)},
		{"bank_code", in.BankCode},
		{"reference_number", in.ReferenceNumber},
		{"payer_email", in.PayerEmail},
	}
	if in.CaptchaToken != "" {
		fields = append(fields, [2]string{"captcha_token", in.CaptchaToken})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if in.Proof != nil {
		contentType := in.Proof.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="proof_file"; filename="%s"`, escapeQuotes(in.Proof.Name)))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create proof part: %w", err)
		}
		if _, err := part.Write(in.Proof.Data); err != nil {
			return nil, "", fmt.Errorf("write proof: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (c *Client) postJSON(ctx context.Context, endpoint string, auth Auth, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.post(ctx, endpoint, auth, "application/json", payload, out)
}

// post sends a single request. Payment calls are never retried: a repeated
// POST could charge the buyer twice.
func (c *Client) post(ctx context.Context, endpoint string, auth Auth, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	if auth.IframeToken != "" {
		req.Header.Set(IframeTokenHeader, auth.IframeToken)
	}
	if auth.IdempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, auth.IdempotencyKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(res, endpoint)
	}
	if res.StatusCode == http.StatusNoContent {
		return nil
	}
	// An empty success body on a payment call is as unusable as a malformed one.
	return decodeBody(res.Body, endpoint, out, false)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			if c.shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			apiErr := newAPIError(res, endpoint)
			_ = res.Body.Close()
			if c.shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		err = decodeBody(res.Body, endpoint, out, true)
		_ = res.Body.Close()
		return err
	}

	return errors.New("request failed after retries")
}

func newAPIError(res *http.Response, endpoint string) *APIError {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
	apiErr := &APIError{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Endpoint:   endpoint,
		Body:       strings.TrimSpace(string(snippet)),
	}
	var msg model.APIMessage
	if json.Unmarshal(snippet, &msg) == nil {
		apiErr.Message = strings.TrimSpace(msg.Message)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(msg.Error)
		}
	}
	return apiErr
}

func decodeBody(body io.Reader, endpoint string, out any, allowEmpty bool) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(out); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}

func (c *Client) shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	delay := c.retryDelay(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	cap := c.retryCap
	if cap <= 0 {
		cap = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= cap/2 {
			return cap
		}
		delay *= 2
	}
	if delay > cap {
		return cap
	}
	return delay
}
