package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

// EmolaConfig carries the e2payments e-Mola credentials. WalletID is
// the merchant wallet segment of the charge endpoint path.
type EmolaConfig struct {
	BaseURL  string
	ClientID string
	Token    string
	WalletID string
	Timeout  time.Duration
}

// Emola charges payers through the e2payments e-Mola C2B API.
type Emola struct {
	client *http.Client
	cfg    EmolaConfig
}

func NewEmola(cfg EmolaConfig) *Emola {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Emola{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

func (e *Emola) Name() string { return "emola" }

func (e *Emola) NormalizeNumber(number string) string {
	return domain.NormalizeNumberEmola(number)
}

type emolaResponse struct {
	Success string `json:"success"`
	Message string `json:"message"`
}

func (e *Emola) Charge(ctx context.Context, req Request) (Result, error) {
	form := url.Values{}
	form.Set("client_id", e.cfg.ClientID)
	form.Set("amount", req.Amount.Truncate(0).String())
	form.Set("reference", req.Reference)
	form.Set("phone", req.PhoneNumber)

	endpoint := fmt.Sprintf("%s/v1/c2b/emola-payment/%s", e.cfg.BaseURL, e.cfg.WalletID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("emola request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("emola response read: %w", err)
	}

	var body emolaResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		// 422 and other validation errors sometimes come back as HTML;
		// treat unparseable declines as failures, not transport errors.
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return Result{}, fmt.Errorf("emola response decode: %w", err)
		}
		return Result{
			Outcome:    OutcomeFailure,
			RawMessage: fmt.Sprintf("e-Mola declined with status %d", resp.StatusCode),
		}, nil
	}

	if (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated) && body.Success != "" {
		// e-Mola reports a bare success with no transaction id; an
		// internal external id is synthesized for reconciliation.
		return Result{
			Outcome:    OutcomeSuccess,
			ExternalID: "EMOLA-" + randomHex(6),
			RawMessage: body.Success,
		}, nil
	}

	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("e-Mola declined with status %d", resp.StatusCode)
	}
	return Result{Outcome: OutcomeFailure, RawMessage: msg}, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}
