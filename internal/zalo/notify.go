package zalo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crucial707/meddevice/internal/metrics"
	"github.com/crucial707/meddevice/internal/models"
)

// RecipientSource finds staff chat ids to notify for a department.
type RecipientSource interface {
	NotificationChatIDs(ctx context.Context, departmentID *int) ([]string, error)
}

// SubscriberSource lists chat ids that subscribed through the bot.
type SubscriberSource interface {
	ChatIDs(ctx context.Context) ([]string, error)
}

// PhotoSender sends text and images.
type PhotoSender interface {
	MessageSender
	SendPhoto(ctx context.Context, chatID, photoURL, caption string) error
}

// Notifier tells staff about new inspections.
type Notifier struct {
	Sender      PhotoSender
	Recipients  RecipientSource
	Subscribers SubscriberSource
	Location    *time.Location
	Logger      *slog.Logger
}

var (
	statusEmoji = map[string]string{models.InspectionGood: "✅", models.InspectionIssue: "⚠️", models.InspectionCritical: "🚨"}
	statusText  = map[string]string{models.InspectionGood: "Tốt", models.InspectionIssue: "Có vấn đề", models.InspectionCritical: "Nghiêm trọng"}
)

// InspectionMessage renders the notification text.
func InspectionMessage(in models.Inspection, d models.Device, at time.Time) string {
	emoji, ok := statusEmoji[in.Status]
	if !ok {
		emoji = "📋"
	}
	status, ok := statusText[in.Status]
	if !ok {
		status = in.Status
	}
	loc := d.Location
	if loc == "" {
		loc = "N/A"
	}

	var b strings.Builder
	b.WriteString("🏥 THÔNG BÁO KIỂM TRA THIẾT BỊ\n\n")
	fmt.Fprintf(&b, "📱 Thiết bị: %s\n", d.Name)
	if d.Model != "" {
		fmt.Fprintf(&b, "📦 Model: %s\n", d.Model)
	}
	fmt.Fprintf(&b, "📍 Vị trí: %s\n", loc)
	fmt.Fprintf(&b, "👤 Người kiểm tra: %s\n", in.InspectorName)
	fmt.Fprintf(&b, "%s Trạng thái: %s\n", emoji, status)
	fmt.Fprintf(&b, "🕐 Thời gian: %s", at.Format("15:04 02/01/2006"))
	if in.Issues != "" {
		fmt.Fprintf(&b, "\n\n⚠️ Vấn đề:\n%s", in.Issues)
	}
	if in.Notes != "" {
		fmt.Fprintf(&b, "\n\n📝 Ghi chú:\n%s", in.Notes)
	}
	if len(in.Images) > 0 {
		fmt.Fprintf(&b, "\n\n📷 Có %d ảnh đính kèm", len(in.Images))
	}
	return b.String()
}

// recipients returns staff of the device's department plus admins, or the bot
// subscribers when no staff member has a chat id.
func (n *Notifier) recipients(ctx context.Context, departmentID *int) []string {
	ids, err := n.Recipients.NotificationChatIDs(ctx, departmentID)
	if err != nil {
		n.Logger.Error("zalo recipients lookup", "error", err)
	}
	if len(ids) > 0 {
		return ids
	}
	subs, err := n.Subscribers.ChatIDs(ctx)
	if err != nil {
		n.Logger.Error("zalo subscribers lookup", "error", err)
		return nil
	}
	return subs
}

// NotifyInspection sends the message and any photos to every recipient and returns how
// many chats received the text. baseURL prefixes relative image paths.
func (n *Notifier) NotifyInspection(ctx context.Context, in models.Inspection, d models.Device, baseURL string) int {
	ids := n.recipients(ctx, d.DepartmentID)
	if len(ids) == 0 {
		n.Logger.Info("zalo: no recipients for inspection notification", "inspection_id", in.ID)
		return 0
	}
	text := InspectionMessage(in, d, in.InspectedAt.In(n.Location))
	baseURL = strings.TrimRight(baseURL, "/")

	sent := 0
	for _, id := range ids {
		if err := n.Sender.SendMessage(ctx, id, text); err != nil {
			metrics.IncReportMessages(false)
			n.Logger.Warn("inspection notification failed", "chat_id", id, "error", err)
			continue
		}
		metrics.IncReportMessages(true)
		sent++
		for i, img := range in.Images {
			url := img
			if !strings.HasPrefix(img, "http") {
				url = baseURL + img
			}
			caption := fmt.Sprintf("Ảnh %d/%d - %s", i+1, len(in.Images), d.Name)
			if err := n.Sender.SendPhoto(ctx, id, url, caption); err != nil {
				n.Logger.Warn("inspection photo failed", "chat_id", id, "photo", url, "error", err)
			}
		}
	}
	return sent
}

// NewNotifier formats times in loc, UTC when loc is nil.
func NewNotifier(sender PhotoSender, recipients RecipientSource, subs SubscriberSource, loc *time.Location, logger *slog.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{Sender: sender, Recipients: recipients, Subscribers: subs, Location: loc, Logger: logger}
}
