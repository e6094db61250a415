// internal/notify/telegram.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org"

// TelegramConfig holds bot credentials. Both must be set to enable Telegram.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// Enabled reports whether both credentials are present.
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != ""
}

// TelegramNotifier sends alerts through the Bot API sendMessage method.
type TelegramNotifier struct {
	cfg     TelegramConfig
	apiBase string
	client  *http.Client
	logger  *zap.Logger
}

// NewTelegramNotifier creates a notifier with a 10s HTTP timeout.
func NewTelegramNotifier(cfg TelegramConfig, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:     cfg,
		apiBase: telegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("telegram"),
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts the alert as a Markdown message.
func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.cfg.ChatID,
		Text:      Format(alert),
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("telegram: encode: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram: status %d: %s", resp.StatusCode, out.Description)
	}

	t.logger.Debug("📤 Sent Telegram message", zap.String("title", alert.Title))
	return nil
}

// Format renders an alert as the chat text.
func Format(alert Alert) string {
	emoji := "ℹ️"
	switch alert.Level {
	case LevelWarning:
		emoji = "⚠️"
	case LevelCritical:
		emoji = "🚨"
	}
	if alert.Message == "" {
		return fmt.Sprintf("%s *%s*", emoji, alert.Title)
	}
	return fmt.Sprintf("%s *%s*\n%s", emoji, alert.Title, alert.Message)
}
