package alerts

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

	"funding-radar/internal/config"

	"go.uber.org/zap"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	maxMessageRunes = 4000
	initialBackoff  = 200 * time.Millisecond
)

var errTelegramConfig = errors.New("telegram token and chat_id are required")

type Telegram struct {
	enabled    bool
	token      string
	chatID     string
	baseURL    string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, log *zap.Logger) *Telegram {
	return newTelegram(cfg, log, telegramBaseURL, &http.Client{Timeout: 10 * time.Second})
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Telegram{
		enabled:    cfg.Enabled,
		token:      strings.TrimSpace(cfg.Token),
		chatID:     strings.TrimSpace(cfg.ChatID),
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		maxRetries: retries,
		backoff:    initialBackoff,
		log:        log,
	}
}

func (t *Telegram) Enabled() bool {
	return t.enabled
}

// Send delivers message, split on line boundaries to fit Telegram's size limit.
func (t *Telegram) Send(ctx context.Context, message string) error {
	if !t.enabled {
		return nil
	}
	if t.token == "" || t.chatID == "" {
		return errTelegramConfig
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("telegram message is empty")
	}
	for _, chunk := range splitMessage(message, maxMessageRunes) {
		if err := t.retry(ctx, func() error { return t.post(ctx, chunk) }); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) retry(ctx context.Context, fn func() error) error {
	backoff := t.backoff
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt == t.maxRetries-1 {
			return fmt.Errorf("retry failed: %w", err)
		}
		t.log.Debug("telegram send retry", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (t *Telegram) post(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram send failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		desc := strings.TrimSpace(result.Description)
		if desc == "" {
			desc = "unknown telegram error"
		}
		return fmt.Errorf("telegram send failed: %s", desc)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			currentLen = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if currentLen+len(runes) > limit {
			flush()
		}
		current.WriteString(string(runes))
		currentLen += len(runes)
	}
	flush()
	return chunks
}
