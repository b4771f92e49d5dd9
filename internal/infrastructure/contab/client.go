// Package contab implementa el cliente HTTP del colaborador contable externo.
// Sin CONTAB_BASE_URL configurada opera en modo desarrollo: devuelve referencias
// simuladas sin salir a la red.
package contab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/invorya/comercial-api/internal/application/billing"
	"github.com/invorya/comercial-api/pkg/config"
	"github.com/invorya/comercial-api/pkg/logger"
)

var _ billing.AccountingPoster = (*Client)(nil)

// Client cliente del servicio contable.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient construye el cliente desde la configuración.
func NewClient(cfg config.ContabConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type postResponse struct {
	Reference string `json:"reference"`
}

// Post registra un asiento contable y devuelve su referencia. Reintenta con
// backoff exponencial; la clave de idempotencia garantiza que los reintentos
// no dupliquen asientos en el colaborador.
func (c *Client) Post(ctx context.Context, req billing.PostingRequest) (string, error) {
	if c.baseURL == "" {
		// Modo desarrollo: sin colaborador configurado el asiento se simula
		c.log.Warn().
			Str("invoice_id", req.InvoiceID).
			Str("direction", req.Direction).
			Msg("contab sin configurar, asiento simulado")
		return "SIM-" + req.InvoiceID + "-" + req.Direction, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("serializar asiento: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(250*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		ref, retryable, err := c.doPost(ctx, body, req.IdempotencyKey)
		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.log.Warn().
			Str("idempotency_key", req.IdempotencyKey).
			Int("attempt", attempt+1).
			Err(err).
			Msg("fallo al registrar asiento contable")
	}
	return "", lastErr
}

func (c *Client) doPost(ctx context.Context, body []byte, idempotencyKey string) (ref string, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/postings", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("llamar contab: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("leer respuesta contab: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("contab respondió %d: %s", resp.StatusCode, raw)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", false, fmt.Errorf("contab respondió %d: %s", resp.StatusCode, raw)
	}

	var out postResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("decodificar respuesta contab: %w", err)
	}
	if out.Reference == "" {
		return "", false, fmt.Errorf("contab no devolvió referencia")
	}
	return out.Reference, false, nil
}
