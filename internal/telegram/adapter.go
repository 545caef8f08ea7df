package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/newshound/internal/digest"
	"github.com/user/newshound/internal/types"
)

const defaultMessageLimit = 3800

// MessageHandler turns one inbound message into a reply. An empty reply
// suppresses the send.
type MessageHandler interface {
	HandleMessage(ctx context.Context, chat types.ChatID, text string) string
}

// botAPI is the slice of tgbotapi.BotAPI the send path uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter bridges Telegram long-polling to the workflow and implements
// the workflow's Sender for outbound pushes.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	api     botAPI
	handler MessageHandler
	limit   int
	logger  *slog.Logger
}

func New(token string, handler MessageHandler, messageLimit int, logger *slog.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if messageLimit <= 0 {
		messageLimit = defaultMessageLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		bot:     bot,
		api:     bot,
		handler: handler,
		limit:   messageLimit,
		logger:  logger,
	}, nil
}

// Start begins long-polling for Telegram updates. Each message is handled
// in its own goroutine so a slow assistant answer never stalls the poll
// loop; the workflow serializes per chat where it matters.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	a.logger.Info("telegram adapter started", "bot", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chat := types.ChatID(msg.Chat.ID)
	reply := a.handler.HandleMessage(ctx, chat, msg.Text)
	if reply == "" {
		return
	}
	if err := a.Send(ctx, chat, reply); err != nil {
		a.logger.Error("send reply", "chat", chat, "error", err)
	}
}

// Send delivers one HTML message, chunked to the configured limit. Each
// part retries as plain text when Telegram rejects the markup.
func (a *Adapter) Send(ctx context.Context, chat types.ChatID, text string) error {
	parts := digest.Chunk(text, a.limit)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(int64(chat), part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := a.api.Send(msg); err != nil {
			a.logger.Warn("html send failed, retrying plain", "chat", chat, "error", err)
			msg.ParseMode = ""
			if _, err := a.api.Send(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}
