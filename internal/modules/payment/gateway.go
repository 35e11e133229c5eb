// Package payment adapts the hosted-checkout payment gateway: signed payment links,
// signed refund requests and verified result/fail callbacks.
package payment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"huntbooking/internal/config"
	"huntbooking/internal/domain"
	"huntbooking/internal/pkg/money"
	"huntbooking/internal/repository"
)

type Gateway struct {
	intents    intentRepo
	cfg        config.GatewayConfig
	httpClient *http.Client
	loggerf    func(format string, args ...interface{})
	now        func() time.Time

	mu     sync.RWMutex
	events EventHandler
}

func NewGateway(intents intentRepo, cfg config.GatewayConfig, loggerf func(format string, args ...interface{})) *Gateway {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Gateway{
		intents:    intents,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		loggerf:    loggerf,
		now:        time.Now,
	}
}

// SetEventHandler connects the booking flow; callbacks arriving before that are rejected.
func (g *Gateway) SetEventHandler(h EventHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = h
}

func (g *Gateway) handler() EventHandler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.events
}

func (g *Gateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !g.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	invID := g.now().UnixNano()
	outSum := money.FormatMinor(req.Amount)
	signature := g.signatureForInit(outSum, invID, req.Metadata)

	u := url.Values{}
	u.Set("MerchantLogin", g.cfg.MerchantLogin)
	u.Set("OutSum", outSum)
	u.Set("InvId", strconv.FormatInt(invID, 10))
	u.Set("Description", req.Description)
	u.Set("SignatureValue", signature)
	u.Set("IsTest", g.cfg.IsTest)
	if req.Currency != "" {
		u.Set("OutSumCurrency", req.Currency)
	}
	if g.cfg.ResultURL != "" {
		u.Set("ResultURL", g.cfg.ResultURL)
	}
	if g.cfg.SuccessURL != "" {
		u.Set("SuccessURL", g.cfg.SuccessURL)
	}
	for k, v := range req.Metadata {
		u.Set("Shp_"+k, v)
	}
	paymentURL := g.cfg.BaseURL + "?" + u.Encode()

	shpRaw, _ := json.Marshal(req.Metadata)
	p := &domain.PaymentIntent{
		BookingID:   req.BookingID,
		OutSum:      outSum,
		Currency:    req.Currency,
		InvID:       invID,
		Description: req.Description,
		Status:      domain.IntentCreated,
		Signature:   signature,
		PaymentURL:  paymentURL,
		ShpParams:   string(shpRaw),
	}
	if err := g.intents.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	g.loggerf("level=info msg=payment intent created booking_id=%d inv_id=%d out_sum=%s", req.BookingID, invID, outSum)
	return &Intent{PaymentReference: strconv.FormatInt(invID, 10), ClientToken: paymentURL}, nil
}

// Refund asks the gateway to return amount for a captured payment. The idempotency key
// travels in the signed body so a repeated request is deduplicated gateway-side.
func (g *Gateway) Refund(ctx context.Context, paymentReference string, amount int64, idempotencyKey string) error {
	if g.cfg.Password3 == "" || g.cfg.RefundURL == "" {
		return ErrNotConfigured
	}
	invID, err := strconv.ParseInt(paymentReference, 10, 64)
	if err != nil {
		return ErrUnknownReference
	}
	p, err := g.intents.GetByInvID(ctx, invID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnknownReference
	}
	if err != nil {
		return err
	}
	switch p.Status {
	case domain.IntentRefunded:
		return nil
	case domain.IntentPaid:
	default:
		return ErrNotRefundable
	}

	claims := jwtlib.MapClaims{
		"MerchantLogin": g.cfg.MerchantLogin,
		"InvId":         invID,
		"RefundSum":     money.FormatMinor(amount),
		"OpKey":         idempotencyKey,
		"iat":           g.now().Unix(),
	}
	body, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(g.cfg.Password3))
	if err != nil {
		return fmt.Errorf("sign refund request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RefundURL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("refund request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var out refundResponse
	if resp.StatusCode/100 != 2 || json.Unmarshal(raw, &out) != nil || !out.Success {
		g.loggerf("level=error msg=refund rejected inv_id=%d status=%d body=%s", invID, resp.StatusCode, string(raw))
		return fmt.Errorf("%w: status=%d message=%s", ErrRefundRejected, resp.StatusCode, out.Message)
	}

	if err := g.intents.MarkRefunded(ctx, invID, out.RequestID, g.now().UTC()); err != nil {
		g.loggerf("level=error msg=failed to mark intent refunded inv_id=%d err=%v", invID, err)
	}
	g.loggerf("level=info msg=refund accepted inv_id=%d request_id=%s", invID, out.RequestID)
	return nil
}

// HandleResultCallback verifies a payment notification and hands it to the booking flow.
// The returned acknowledgement is what the gateway expects in the response body.
func (g *Gateway) HandleResultCallback(ctx context.Context, outSum string, invID int64, signature string, shp map[string]string, rawBody string) (string, error) {
	valid := strings.EqualFold(signature, g.signatureForResult(outSum, invID, shp))
	g.loggerf("level=info msg=result callback signature validation inv_id=%d signature_valid=%t", invID, valid)
	if !valid {
		return "", ErrInvalidSignature
	}

	p, err := g.intents.GetByInvID(ctx, invID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUnknownReference
	}
	if err != nil {
		return "", err
	}
	if !money.Equal(outSum, p.OutSum) {
		reason := fmt.Sprintf("amount mismatch callback=%s expected=%s", outSum, p.OutSum)
		if err := g.intents.UpdateStatus(ctx, invID, domain.IntentFailed, rawBody, reason); err != nil {
			g.loggerf("level=error msg=failed to mark intent failed inv_id=%d reason=%s err=%v", invID, reason, err)
		}
		g.loggerf("level=warn msg=result callback rejected inv_id=%d %s", invID, reason)
		return "", ErrAmountMismatch
	}

	changed, err := g.intents.MarkPaidIdempotent(ctx, invID, rawBody, g.now().UTC())
	if err != nil {
		return "", err
	}
	if !changed {
		g.loggerf("level=info msg=duplicate result callback inv_id=%d", invID)
	}

	// dispatched on duplicates too, so a delivery that failed half-way is retried
	h := g.handler()
	if h == nil {
		return "", errors.New("payment event handler not set")
	}
	if err := h.HandlePaymentSucceeded(ctx, strconv.FormatInt(invID, 10)); err != nil {
		return "", fmt.Errorf("handle payment succeeded: %w", err)
	}
	return "OK" + strconv.FormatInt(invID, 10), nil
}

// HandleFailCallback verifies a failed or cancelled checkout. Paid intents are left alone.
func (g *Gateway) HandleFailCallback(ctx context.Context, outSum string, invID int64, signature string, shp map[string]string, rawQuery string) error {
	valid := strings.EqualFold(signature, g.signatureForFail(outSum, invID, shp))
	g.loggerf("level=info msg=fail callback signature validation inv_id=%d signature_valid=%t", invID, valid)
	if !valid {
		return ErrInvalidSignature
	}

	changed, err := g.intents.MarkFailedIfOpen(ctx, invID, rawQuery, "checkout failed or cancelled")
	if err != nil {
		return err
	}
	if !changed {
		if _, err := g.intents.GetByInvID(ctx, invID); errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownReference
		}
		g.loggerf("level=info msg=fail callback ignored inv_id=%d", invID)
		return nil
	}

	h := g.handler()
	if h == nil {
		return errors.New("payment event handler not set")
	}
	return h.HandlePaymentFailed(ctx, strconv.FormatInt(invID, 10))
}

func (g *Gateway) signatureForInit(outSum string, invID int64, shp map[string]string) string {
	parts := []string{g.cfg.MerchantLogin, outSum, strconv.FormatInt(invID, 10), g.cfg.Password1}
	parts = append(parts, flattenShpParams(shp)...)
	return md5Hex(strings.Join(parts, ":"))
}

func (g *Gateway) signatureForResult(outSum string, invID int64, shp map[string]string) string {
	parts := []string{outSum, strconv.FormatInt(invID, 10), g.cfg.Password2}
	parts = append(parts, flattenShpParams(shp)...)
	return md5Hex(strings.Join(parts, ":"))
}

func (g *Gateway) signatureForFail(outSum string, invID int64, shp map[string]string) string {
	parts := []string{outSum, strconv.FormatInt(invID, 10), g.cfg.Password1}
	parts = append(parts, flattenShpParams(shp)...)
	return md5Hex(strings.Join(parts, ":"))
}

func flattenShpParams(shp map[string]string) []string {
	keys := make([]string, 0, len(shp))
	for k := range shp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, "Shp_"+k+"="+shp[k])
	}
	return out
}

func md5Hex(s string) string {
	h := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(h[:]))
}
