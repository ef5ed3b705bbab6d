package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/storage"
)

// Telegram pushes new-lead alerts to the sales channel and to
// individual admin chats.
type Telegram struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	chatIDs   []int64
	logger    *zap.Logger
}

// NewTelegram creates the alert sender, or returns nil when no token is
// configured (alerts disabled).
func NewTelegram(token string, channelID int64, chatIDs []int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		logger.Warn("Telegram notifications disabled - no token configured")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized",
		zap.String("username", bot.Self.UserName))

	return &Telegram{bot: bot, channelID: channelID, chatIDs: chatIDs, logger: logger}, nil
}

// NotifyLead sends a short lead summary to the channel and each admin
// chat. Individual send failures are logged and folded into the
// returned error; delivery is best-effort.
func (t *Telegram) NotifyLead(lead storage.Lead) error {
	text := formatLeadAlert(lead)

	var failed int
	for _, chatID := range t.targets() {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			failed++
			t.logger.Error("Failed to send lead alert",
				zap.Int64("chat_id", chatID),
				zap.String("lead_id", lead.ID),
				zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: telegram alert failed for %d chat(s)",
			pricing.ErrNotificationFailed, failed)
	}
	return nil
}

// SendLeadLog pushes the lead-log workbook to the sales channel so the
// team always has the current sheet next to the alert.
func (t *Telegram) SendLeadLog(path, caption string) error {
	chatID := t.channelID
	if chatID == 0 {
		targets := t.targets()
		if len(targets) == 0 {
			return nil
		}
		chatID = targets[0]
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := t.bot.Send(doc); err != nil {
		t.logger.Error("Failed to send lead log workbook",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return fmt.Errorf("%w: telegram document: %v", pricing.ErrNotificationFailed, err)
	}
	return nil
}

func (t *Telegram) targets() []int64 {
	var ids []int64
	if t.channelID != 0 {
		ids = append(ids, t.channelID)
	}
	for _, id := range t.chatIDs {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func formatLeadAlert(lead storage.Lead) string {
	return fmt.Sprintf(
		"New lead %s\n"+
			"Name: %s\n"+
			"Email: %s\n"+
			"Phone: %s\n"+
			"Action: %s\n"+
			"Estimate: %.0f %s (%s, %s)\n"+
			"Score: %d (%s)",
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Action,
		lead.Total, lead.Currency, lead.Market, lead.Quality,
		lead.Score, lead.Tier,
	)
}
