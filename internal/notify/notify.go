package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"storformat-pricing/internal/pricing"
	"storformat-pricing/internal/storage"
)

// Notifier pings the shop's admins in Telegram about quotes that need human
// attention: oversized jobs that must be produced in pieces, and quotes
// above the configured total. A Notifier built without a token is disabled
// and ignores all events.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	adminIDs []int64
	minTotal float64
	logger   *zap.Logger
}

func New(token string, adminIDs []int64, minTotal float64, logger *zap.Logger) (*Notifier, error) {
	n := &Notifier{
		adminIDs: adminIDs,
		minTotal: minTotal,
		logger:   logger,
	}

	if token == "" {
		logger.Info("Admin notifications disabled - no Telegram token configured")
		return n, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Notification bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	n.bot = botAPI
	return n, nil
}

// QuoteComputed reports a saved quote when it crosses the notification
// threshold or carries a split recommendation. Errors are logged, never
// returned: notifications must not fail a quote request.
func (n *Notifier) QuoteComputed(quote storage.Quote, result pricing.QuoteResult) {
	if n.bot == nil {
		return
	}
	if result.Split == nil && result.TotalPrice < n.minTotal {
		return
	}

	text := fmt.Sprintf(
		"Quote #%d (%s)\n"+
			"Material: %s\n"+
			"Size: %.0f×%.0f mm × %d\n"+
			"Total: %.2f",
		quote.ID, quote.TenantID,
		quote.MaterialName,
		quote.WidthMM, quote.HeightMM, quote.Quantity,
		result.TotalPrice,
	)
	if result.Split != nil {
		text += fmt.Sprintf(
			"\nOversized: produce as %d pieces (%d wide × %d high)",
			result.Split.TotalPieces, result.Split.PiecesWide, result.Split.PiecesHigh,
		)
	}

	for _, adminID := range n.adminIDs {
		if adminID == 0 {
			continue
		}
		msg := tgbotapi.NewMessage(adminID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error("Failed to send quote notification",
				zap.Int64("chat_id", adminID),
				zap.Int64("quote_id", quote.ID),
				zap.Error(err))
		}
	}
}
