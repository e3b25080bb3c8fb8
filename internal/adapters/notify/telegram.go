package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const (
	telegramRetries    = 3
	telegramRetryDelay = time.Second
)

// Telegram implementa ports.Notifier enviando las alertas por bot.
// Un envío que falla no es fatal: el monitor loguea y sigue con el ciclo.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram crea el notificador con el token del bot y el chat destino.
func NewTelegram(token, chatID string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: id}, nil
}

// Notify envía un único mensaje MarkdownV2 con todas las alertas del
// ciclo, con backoff lineal entre reintentos.
func (t *Telegram) Notify(ctx context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, formatAlerts(opportunities))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < telegramRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(telegramRetryDelay * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("notify: telegram send failed after %d retries: %w", telegramRetries, lastErr)
}

// formatAlerts arma el mensaje MarkdownV2 del ciclo.
func formatAlerts(opps []domain.Opportunity) string {
	var sb strings.Builder
	sb.WriteString("🚨 *Cross\\-venue arbitrage*\n\n")

	for i, o := range opps {
		fmt.Fprintf(&sb, "%d\\. *%s*\n", i+1, escapeMarkdownV2(o.PairName))
		fmt.Fprintf(&sb, "   cost %s, edge *%s¢*, deploy %s\n",
			escapeMarkdownV2(fmt.Sprintf("%.4f", o.SumCost)),
			escapeMarkdownV2(fmt.Sprintf("%.2f", o.EdgeCents)),
			escapeMarkdownV2(fmt.Sprintf("$%.2f", o.DeployableUSD)))
		for _, l := range o.Legs {
			fmt.Fprintf(&sb, "   🛒 buy %s on %s @ %s\n",
				escapeMarkdownV2(l.Outcome),
				escapeMarkdownV2(string(l.Venue)),
				escapeMarkdownV2(fmt.Sprintf("%.3f", l.AskPrice)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// escapeMarkdownV2 escapa los caracteres reservados de Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
