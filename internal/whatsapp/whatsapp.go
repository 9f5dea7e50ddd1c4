package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// Config: credenciais Twilio. From é o número WhatsApp da clínica (ex.: whatsapp:+14155238886).
type Config struct {
	AccountSid string
	AuthToken  string
	From       string
	// BaseURL só muda em teste.
	BaseURL string
}

func (c Config) Configured() bool {
	return c.AccountSid != "" && c.AuthToken != "" && c.From != ""
}

// Reminder é o lembrete da consulta de amanhã.
type Reminder struct {
	Phone            string
	PatientName      string
	ProfessionalName string
	Date             string // dd/mm/aaaa
	Time             string // HH:MM
}

// Client envia mensagens pela API REST da Twilio.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Client) Configured() bool { return c.cfg.Configured() }

// SendReminder sem credenciais não envia nada e retorna nil.
func (c *Client) SendReminder(ctx context.Context, r Reminder) error {
	if !c.cfg.Configured() {
		return nil
	}
	return c.send(ctx, r.Phone, ReminderText(r))
}

func ReminderText(r Reminder) string {
	with := ""
	if r.ProfessionalName != "" {
		with = " com " + r.ProfessionalName
	}
	return fmt.Sprintf("Olá, %s! Lembrete: amanhã (%s) às %s você tem consulta%s. Se não puder comparecer, avise a clínica.",
		r.PatientName, r.Date, r.Time, with)
}

// NormalizePhone devolve "whatsapp:+<dígitos>". Número brasileiro sem DDI ganha +55.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return "", fmt.Errorf("whatsapp: destinatário vazio")
	}
	if !strings.HasPrefix(phone, "+") && (len(d) == 10 || len(d) == 11) {
		d = "55" + d
	}
	return "whatsapp:+" + d, nil
}

func (c *Client) send(ctx context.Context, to, body string) error {
	to, err := NormalizePhone(to)
	if err != nil {
		return err
	}
	from := c.cfg.From
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)
	reqURL := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountSid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSid, c.cfg.AuthToken)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	slurp, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("whatsapp: %s: read body: %w", resp.Status, err)
	}
	return fmt.Errorf("whatsapp: %s: %s", resp.Status, string(slurp))
}
