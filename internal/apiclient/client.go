// Package apiclient fala com a API de agendamento por HTTP. É o scheduling.Creator usado pelo
// comando `schedule`, que roda o mesmo fluxo do formulário de recorrência fora do navegador.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gestordeclinica/backend/internal/scheduling"
)

// HTTPError traz o status e o campo "error" do corpo da resposta.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return fmt.Sprintf("http %d: %s", e.Status, e.Message) }

func (e *HTTPError) ServerMessage() string { return e.Message }

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

var _ scheduling.Creator = (*Client)(nil)

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateAppointment(ctx context.Context, req scheduling.SingleRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/appointments", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) CreateAppointmentBatch(ctx context.Context, req scheduling.BatchRequest) ([]string, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.post(ctx, "/api/appointments/batch", req, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) post(ctx context.Context, path string, body, dst interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &HTTPError{Status: resp.StatusCode, Message: e.Error}
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
