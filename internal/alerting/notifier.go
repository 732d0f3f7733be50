package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries the context of a triggered price alert.
type Notification struct {
	AlertID        string
	ProductID      string
	ProductName    string
	Contact        string
	CurrentPrice   decimal.Decimal
	TargetPrice    decimal.Decimal
	CurrencySymbol string
	TriggeredAt    time.Time
}

// Notifier delivers notifications to a channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("alert_id", note.AlertID).
		Str("product_id", note.ProductID).
		Msg("alert delivered (telegram)")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	name := note.ProductName
	if name == "" {
		name = note.ProductID
	}
	builder := strings.Builder{}
	builder.WriteString("[Price Alert]\n")
	builder.WriteString(fmt.Sprintf("Product: %s\n", name))
	builder.WriteString(fmt.Sprintf("Current: %s%s\n", note.CurrencySymbol, note.CurrentPrice.String()))
	builder.WriteString(fmt.Sprintf("Target: %s%s\n", note.CurrencySymbol, note.TargetPrice.String()))
	if note.Contact != "" {
		builder.WriteString(fmt.Sprintf("Contact: %s\n", note.Contact))
	}
	if !note.TriggeredAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Triggered: %s UTC\n", note.TriggeredAt.UTC().Format(time.RFC3339)))
	}
	return builder.String()
}

// LogNotifier records notifications in the structured log only.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier builds the log channel.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify writes the notification as one log event.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info().
		Str("alert_id", note.AlertID).
		Str("product_id", note.ProductID).
		Str("contact", note.Contact).
		Str("current_price", note.CurrentPrice.String()).
		Str("target_price", note.TargetPrice.String()).
		Msg("price alert triggered")
	return nil
}

// Multi fans a notification out to every channel and joins their failures.
type Multi []Notifier

// Notify delivers to each channel in turn; one failing channel does not stop the others.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases every channel that holds background work.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := Close(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases n when it holds background work; other notifiers are left alone.
func Close(n Notifier) error {
	if c, ok := n.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ Notifier  = (*TelegramNotifier)(nil)
	_ Notifier  = (*LogNotifier)(nil)
	_ Notifier  = Multi(nil)
	_ io.Closer = Multi(nil)
)
