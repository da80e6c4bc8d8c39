package evo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client fala com a ponte WhatsApp (Evolution API). Todas as chamadas
// são melhor-esforço: a ponte pode estar em baixo sem bloquear o resto
// do sistema, por isso os chamadores tratam erros como aviso.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// New cria o cliente; baseURL vazio devolve um cliente desativado cujas
// chamadas falham com ErrDisabled.
func New(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:  secret,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ErrDisabled indica que a ponte não está configurada.
var ErrDisabled = errDisabled{}

type errDisabled struct{}

func (errDisabled) Error() string { return "ponte whatsapp não configurada" }

// Enabled indica se há uma ponte configurada.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("codificar pedido evo: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("criar pedido evo: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Internal-Secret", c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chamar ponte evo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ponte evo respondeu %d em %s", resp.StatusCode, path)
	}
	return nil
}

// SendText envia uma mensagem de texto para um número WhatsApp.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	return c.post(ctx, "/api/internal/send-text", map[string]string{
		"number": number,
		"text":   text,
	})
}

// SendAudioURL pede à ponte que envie um áudio para um número WhatsApp.
// A ponte vai buscar o ficheiro ao URL, que tem de ser público e já
// autenticado (token na query string).
func (c *Client) SendAudioURL(ctx context.Context, number, audioURL string) error {
	return c.post(ctx, "/api/internal/send-audio", map[string]string{
		"number":    number,
		"audio_url": audioURL,
	})
}

// UpdateEmbedding avisa a ponte que a resposta de uma dúvida mudou, para
// reindexar o embedding usado pelo bot.
func (c *Client) UpdateEmbedding(ctx context.Context, perguntaID int64) error {
	return c.post(ctx, "/api/internal/atualizar-embedding-duvida", map[string]int64{
		"pergunta_id": perguntaID,
	})
}
