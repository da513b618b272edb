package zalo

import (
	"context"
	"log/slog"
	"strings"
)

// Action is what the bot did with an incoming message.
type Action string

const (
	ActionNone         Action = ""
	ActionIDRequested  Action = "id_requested"
	ActionStart        Action = "start"
	ActionUnsubscribed Action = "unsubscribed"
	ActionTest         Action = "test"
	ActionInfo         Action = "info"
)

// MessageSender is the part of Client the bot and notifier need.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Unsubscriber removes a chat id from the broadcast list.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, chatID string) (bool, error)
}

// Bot answers chat commands.
type Bot struct {
	Sender      MessageSender
	Subscribers Unsubscriber
	Logger      *slog.Logger
}

// NewBot returns a Bot that replies through sender.
func NewBot(sender MessageSender, subs Unsubscriber, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{Sender: sender, Subscribers: subs, Logger: logger}
}

// HandleUpdate replies to one update. Send failures are logged; the action is still returned.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) Action {
	if u.Message == nil || u.Message.Chat.ID == "" {
		return ActionNone
	}
	chatID := u.Message.Chat.ID
	name := u.Message.From.DisplayName
	if name == "" {
		name = "Người dùng"
	}
	text := strings.ToLower(strings.TrimSpace(u.Message.Text))
	b.Logger.Info("zalo message received", "chat_id", chatID, "from", name, "text", u.Message.Text)

	var action Action
	var reply string
	switch text {
	case "/dangky", "/register", "/id":
		action = ActionIDRequested
		reply = "🆔 Zalo ID của bạn là: " + chatID + "\n\nHãy nhập ID này vào trang quản lý User để nhận thông báo liên quan đến khoa phòng của bạn."
	case "/start":
		action = ActionStart
		reply = "Xin chào " + name + "! 👋\n\nĐây là Bot Quản lý Thiết bị Y tế.\n\nGửi \"/dangky\" để lấy ID và nhập vào hệ thống để nhận thông báo."
	case "hủy", "/stop":
		action = ActionUnsubscribed
		if _, err := b.Subscribers.Unsubscribe(ctx, chatID); err != nil {
			b.Logger.Error("zalo unsubscribe", "chat_id", chatID, "error", err)
		}
		reply = "Bạn đã hủy đăng ký nhận thông báo. 👋\n\nGửi \"đăng ký\" để nhận lại."
	case "test":
		action = ActionTest
		reply = "🧪 Tin nhắn thử nghiệm\n\nHệ thống hoạt động bình thường!\nChat ID: " + chatID
	default:
		action = ActionInfo
		reply = "Xin chào " + name + "! 👋\n\nGửi \"đăng ký\" để nhận thông báo kiểm tra thiết bị."
	}

	if err := b.Sender.SendMessage(ctx, chatID, reply); err != nil {
		b.Logger.Warn("zalo reply failed", "chat_id", chatID, "action", string(action), "error", err)
	}
	return action
}
