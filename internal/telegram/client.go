// Package telegram sends alert summaries via the Telegram Bot API.
// Messages use MarkdownV2 and delivery is retried with linear backoff.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/volwatch/internal/alert"
	"github.com/rewired-gh/volwatch/internal/models"
	"github.com/rewired-gh/volwatch/internal/monitor"
	"github.com/rewired-gh/volwatch/internal/report"
)

// maxListed caps the alerts listed in one message; Telegram rejects
// messages over 4096 characters.
const maxListed = 20

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// Send delivers the alert summary of a check result.
func (c *Client) Send(ctx context.Context, res *monitor.CheckResult) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(res))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical: "🔴",
	models.SeverityHigh:     "🟠",
	models.SeverityMedium:   "🟡",
	models.SeverityLow:      "🔵",
}

// formatMessage formats a check result into a MarkdownV2 message
func formatMessage(res *monitor.CheckResult) string {
	var b strings.Builder

	if len(res.Alerts) == 0 {
		b.WriteString("✅ *No volume alerts*\n\n")
	} else {
		b.WriteString("🚨 *Volume Alerts Detected*\n\n")
	}
	fmt.Fprintf(&b, "📅 Period: %s\n", escapeMarkdownV2(res.Date.Format(models.DateLayout)))
	fmt.Fprintf(&b, "🎚 Sensitivity: %s\n", escapeMarkdownV2(res.Sensitivity))
	fmt.Fprintf(&b, "📊 Evaluated: %d, skipped: %d\n", res.Evaluated, res.Skipped)
	if len(res.Alerts) == 0 {
		return b.String()
	}

	counts := alert.CountBySeverity(res.Alerts)
	var parts []string
	for _, sev := range models.Severities {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%s %s %d", severityEmoji[sev], sev, counts[sev]))
		}
	}
	fmt.Fprintf(&b, "\n%s\n\n", strings.Join(parts, "  "))

	// Most urgent first; the result itself stays in key order.
	listed := 0
	for _, sev := range models.Severities {
		for _, a := range res.Alerts {
			if a.Severity != sev || listed == maxListed {
				continue
			}
			listed++
			fmt.Fprintf(&b, "%d\\. %s *%s*\n", listed, severityEmoji[sev], escapeMarkdownV2(a.Key.String()))
			if a.Type == models.AlertNoData {
				b.WriteString("   No data received\n")
				continue
			}
			fmt.Fprintf(&b, "   %s vs threshold %s, *%s* below mean\n",
				escapeMarkdownV2(report.Comma(a.ObservedCount)),
				escapeMarkdownV2(report.Comma(a.Threshold)),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", a.DropPct)))
		}
	}
	if rest := len(res.Alerts) - listed; rest > 0 {
		fmt.Fprintf(&b, "\n…and %d more\n", rest)
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
