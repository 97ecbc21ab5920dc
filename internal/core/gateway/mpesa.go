package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

const mpesaChargePath = "/ipg/v1x/c2bPayment/singleStage/"

// MpesaConfig carries the Vodacom open-API credentials. The bearer
// token is derived per request by encrypting APIKey under PublicKey.
type MpesaConfig struct {
	BaseURL             string
	APIKey              string
	PublicKey           string // base64 DER, as issued by the portal
	ServiceProviderCode string
	Timeout             time.Duration
}

// Mpesa charges payers through the Vodacom M-Pesa C2B single-stage API.
type Mpesa struct {
	client *http.Client
	cfg    MpesaConfig
}

func NewMpesa(cfg MpesaConfig) (*Mpesa, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if _, err := bearerToken(cfg.APIKey, cfg.PublicKey); err != nil {
		return nil, fmt.Errorf("mpesa credentials: %w", err)
	}
	return &Mpesa{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}, nil
}

func (m *Mpesa) Name() string { return "mpesa" }

func (m *Mpesa) NormalizeNumber(number string) string {
	return domain.NormalizeNumberMpesa(number)
}

type mpesaResponse struct {
	ResponseCode  string `json:"output_ResponseCode"`
	ResponseDesc  string `json:"output_ResponseDesc"`
	TransactionID string `json:"output_TransactionID"`
}

func (m *Mpesa) Charge(ctx context.Context, req Request) (Result, error) {
	token, err := bearerToken(m.cfg.APIKey, m.cfg.PublicKey)
	if err != nil {
		return Result{}, fmt.Errorf("mpesa bearer token: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"input_TransactionReference": req.Reference,
		"input_CustomerMSISDN":       req.PhoneNumber,
		"input_Amount":               req.Amount.Truncate(0).String(),
		"input_ThirdPartyReference":  req.Reference,
		"input_ServiceProviderCode":  m.cfg.ServiceProviderCode,
	})
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+mpesaChargePath, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Origin", "*")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("mpesa request: %w", err)
	}
	defer resp.Body.Close()

	var body mpesaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("mpesa response decode: %w", err)
	}

	if (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated) && body.ResponseCode == "INS-0" {
		return Result{
			Outcome:    OutcomeSuccess,
			ExternalID: body.TransactionID,
			RawMessage: body.ResponseDesc,
		}, nil
	}

	msg := body.ResponseDesc
	if msg == "" {
		msg = fmt.Sprintf("M-Pesa declined with status %d", resp.StatusCode)
	}
	return Result{
		Outcome:    OutcomeFailure,
		ExternalID: body.TransactionID,
		RawMessage: msg,
	}, nil
}

// bearerToken encrypts the API key under the provider's RSA public key
// and base64-encodes it, per the open-API authentication scheme.
func bearerToken(apiKey, publicKey string) (string, error) {
	der, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("public key is %T, want RSA", parsed)
	}
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, []byte(apiKey))
	if err != nil {
		return "", fmt.Errorf("encrypt api key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}
