package zalo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucial707/meddevice/internal/models"
)

type sentMsg struct{ chatID, text string }

type recorder struct {
	mu     sync.Mutex
	msgs   []sentMsg
	photos []sentMsg
	fail   map[string]bool
	notify chan struct{}
}

func (r *recorder) SendMessage(_ context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[chatID] {
		return errors.New("send failed")
	}
	r.msgs = append(r.msgs, sentMsg{chatID, text})
	if r.notify != nil {
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *recorder) SendPhoto(_ context.Context, chatID, url, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, sentMsg{chatID, url + "|" + caption})
	return nil
}

type fakeSubs struct {
	removed []string
	ids     []string
}

func (f *fakeSubs) Unsubscribe(_ context.Context, chatID string) (bool, error) {
	f.removed = append(f.removed, chatID)
	return true, nil
}

func (f *fakeSubs) ChatIDs(context.Context) ([]string, error) { return f.ids, nil }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func update(chatID, text string) Update {
	m := &Message{Text: text}
	m.Chat.ID = chatID
	m.From.DisplayName = "Lan"
	return Update{Message: m}
}

func TestBot_Commands(t *testing.T) {
	cases := []struct {
		text   string
		action Action
		reply  string
	}{
		{"/dangky", ActionIDRequested, "🆔 Zalo ID của bạn là: c1"},
		{"/ID", ActionIDRequested, "🆔 Zalo ID của bạn là: c1"},
		{"/start", ActionStart, "Xin chào Lan! 👋\n\nĐây là Bot Quản lý Thiết bị Y tế."},
		{"Test", ActionTest, "Chat ID: c1"},
		{"hello", ActionInfo, "Gửi \"đăng ký\" để nhận thông báo"},
	}
	for _, tc := range cases {
		rec := &recorder{}
		bot := NewBot(rec, &fakeSubs{}, quietLogger())
		assert.Equal(t, tc.action, bot.HandleUpdate(context.Background(), update("c1", tc.text)), tc.text)
		require.Len(t, rec.msgs, 1, tc.text)
		assert.Contains(t, rec.msgs[0].text, tc.reply, tc.text)
	}
}

func TestBot_Stop_Unsubscribes(t *testing.T) {
	rec := &recorder{}
	subs := &fakeSubs{}
	bot := NewBot(rec, subs, quietLogger())

	assert.Equal(t, ActionUnsubscribed, bot.HandleUpdate(context.Background(), update("c7", "hủy")))
	assert.Equal(t, []string{"c7"}, subs.removed)
}

func TestBot_IgnoresEmpty(t *testing.T) {
	rec := &recorder{}
	bot := NewBot(rec, &fakeSubs{}, quietLogger())
	assert.Equal(t, ActionNone, bot.HandleUpdate(context.Background(), Update{}))
	assert.Empty(t, rec.msgs)
}

type fakeRecipients struct {
	ids []string
	err error
}

func (f fakeRecipients) NotificationChatIDs(context.Context, *int) ([]string, error) { return f.ids, f.err }

func TestNotifier_DepartmentStaff(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"bad": true}}
	n := NewNotifier(rec, fakeRecipients{ids: []string{"admin", "bad"}}, &fakeSubs{ids: []string{"sub"}}, time.UTC, quietLogger())

	in := models.Inspection{ID: 1, InspectorName: "Lan", Status: "issue", Issues: "loose cable",
		Images: []string{"/uploads/a.jpg", "https://cdn.example.org/b.jpg"}, InspectedAt: time.Date(2024, 1, 15, 9, 5, 0, 0, time.UTC)}
	d := models.Device{Name: "Monitor", Model: "M-200", Location: "ICU"}

	sent := n.NotifyInspection(context.Background(), in, d, "https://bv.example.org/")
	assert.Equal(t, 1, sent)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "admin", rec.msgs[0].chatID)
	assert.Contains(t, rec.msgs[0].text, "⚠️ Trạng thái: Có vấn đề")
	assert.Contains(t, rec.msgs[0].text, "🕐 Thời gian: 09:05 15/01/2024")
	assert.Contains(t, rec.msgs[0].text, "📷 Có 2 ảnh đính kèm")
	require.Len(t, rec.photos, 2)
	assert.Equal(t, "https://bv.example.org/uploads/a.jpg|Ảnh 1/2 - Monitor", rec.photos[0].text)
	assert.Equal(t, "https://cdn.example.org/b.jpg|Ảnh 2/2 - Monitor", rec.photos[1].text)
}

func TestNotifier_FallsBackToSubscribers(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec, fakeRecipients{err: errors.New("db down")}, &fakeSubs{ids: []string{"sub1", "sub2"}}, time.UTC, quietLogger())

	sent := n.NotifyInspection(context.Background(), models.Inspection{Status: "good"}, models.Device{Name: "X"}, "")
	assert.Equal(t, 2, sent)
	assert.Contains(t, rec.msgs[0].text, "📍 Vị trí: N/A")
}
