package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Outbound sends are throttled below Telegram's global bot limits.
const (
	sendRate  = 20
	sendBurst = 30
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// TelegramBot is the transport collaborator: it feeds inbound messages to
// the dispatcher and delivers replies. The dispatcher stays transport-
// agnostic; chats map to conversation ids and users to sender ids here.
type TelegramBot struct {
	tg         telegramClient
	dispatcher *Dispatcher
	limiter    *rate.Limiter
	logger     *zerolog.Logger
}

// NewTelegramBot authorizes against the Bot API with token.
func NewTelegramBot(token string, debug bool, dispatcher *Dispatcher, logger *zerolog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = debug
	return newTelegramBot(&realTelegramClient{api: api}, dispatcher, logger)
}

func newTelegramBot(tg telegramClient, dispatcher *Dispatcher, logger *zerolog.Logger) (*TelegramBot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	return &TelegramBot{
		tg:         tg,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		logger:     logger,
	}, nil
}

// Start begins polling updates until ctx is done.
func (b *TelegramBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("booking bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			b.handleUpdate(l.WithContext(ctx), &update)
		}
	}
}

func (b *TelegramBot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	l := zerolog.Ctx(ctx)
	l.Debug().
		Int64("chat_id", msg.Chat.ID).
		Str("text", msg.Text).
		Msg("handling message")

	conversationID := strconv.FormatInt(msg.Chat.ID, 10)
	reply := b.dispatcher.HandleCommand(ctx, conversationID, senderIdentity(msg.From), msg.Text)
	if reply == nil {
		return
	}
	b.deliver(ctx, msg.Chat.ID, msg.MessageID, reply)
}

func (b *TelegramBot) deliver(ctx context.Context, chatID int64, replyTo int, reply *Reply) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}

	out := tgbotapi.NewMessage(chatID, reply.Text)
	out.ReplyToMessageID = replyTo
	if _, err := b.tg.Send(out); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("send reply failed")
	}
}

// senderIdentity builds a stable participant identifier. The local part
// (before "@") is what rendered lists display; usernames render as
// Telegram mentions on their own.
func senderIdentity(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return fmt.Sprintf("%s@%d", strings.ToLower(u.UserName), u.ID)
	}
	return strconv.FormatInt(u.ID, 10)
}
