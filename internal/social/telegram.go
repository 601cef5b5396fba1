package social

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hugs-network/trivia_layer/pkg/logger"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

// TelegramBot is the part of the bot API the adapter uses.
// *tgbotapi.BotAPI implements it.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// NewTelegramBot connects to the bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return bot, nil
}

// Telegram posts rounds into one chat. Replies are chat messages that
// reply to the round post; updates are pulled with getUpdates and buffered
// per post.
type Telegram struct {
	bot    TelegramBot
	chatID int64
	log    *logger.Logger

	mu      sync.Mutex
	offset  int
	replies map[int][]trivia.Reply
}

var _ trivia.Platform = (*Telegram)(nil)

// NewTelegram builds the adapter for chatID.
func NewTelegram(bot TelegramBot, chatID int64, log *logger.Logger) *Telegram {
	if log == nil {
		log = logger.NewDefault("social-telegram")
	}
	return &Telegram{bot: bot, chatID: chatID, log: log, replies: make(map[int][]trivia.Reply)}
}

func (t *Telegram) Post(ctx context.Context, text string) (string, error) {
	return t.send(ctx, 0, text)
}

func (t *Telegram) Reply(ctx context.Context, postID, text string) (string, error) {
	id, err := strconv.Atoi(postID)
	if err != nil {
		return "", fmt.Errorf("telegram: invalid post id %q", postID)
	}
	return t.send(ctx, id, text)
}

func (t *Telegram) send(ctx context.Context, replyTo int, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ReplyToMessageID = replyTo
	sent, err := t.bot.Send(msg)
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// FetchReplies drains pending updates and returns the buffered replies to
// postID in arrival order.
func (t *Telegram) FetchReplies(ctx context.Context, postID string) ([]trivia.Reply, error) {
	id, err := strconv.Atoi(postID)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid post id %q", postID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cfg := tgbotapi.NewUpdate(t.offset)
	cfg.Timeout = 0
	updates, err := t.bot.GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("telegram updates: %w", err)
	}
	for _, u := range updates {
		if u.UpdateID >= t.offset {
			t.offset = u.UpdateID + 1
		}
		m := u.Message
		if m == nil || m.ReplyToMessage == nil || m.Chat == nil || m.Chat.ID != t.chatID {
			continue
		}
		parent := m.ReplyToMessage.MessageID
		t.replies[parent] = append(t.replies[parent], trivia.Reply{
			ID:     strconv.Itoa(m.MessageID),
			Handle: telegramHandle(m.From),
			Text:   m.Text,
		})
	}

	out := make([]trivia.Reply, len(t.replies[id]))
	copy(out, t.replies[id])
	return out, nil
}

func telegramHandle(u *tgbotapi.User) string {
	switch {
	case u == nil:
		return "@unknown"
	case u.UserName != "":
		return "@" + u.UserName
	default:
		return "tg:" + strconv.FormatInt(u.ID, 10)
	}
}
