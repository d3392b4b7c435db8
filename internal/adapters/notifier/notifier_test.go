package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"freelancer-feedback/internal/domain"
)

func event(comment *string) domain.FeedbackEvent {
	return domain.FeedbackEvent{
		FeedbackID:     12,
		FreelancerName: "Tom & <Jerry>",
		ProfileURL:     `https://example.com/p?a=1&b="x"`,
		OverallRating:  4,
		MeanRating:     4.5,
		Comments:       comment,
		SubmittedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFormatEventEscapesHTML(t *testing.T) {
	comment := "<script>alert(1)</script>"
	text := FormatEvent(event(&comment))

	for _, want := range []string{
		"<b>Новый отзыв #12</b>",
		"Tom &amp; &lt;Jerry&gt;",
		`href="https://example.com/p?a=1&amp;b=&quot;x&quot;"`,
		"★★★★☆ (4/5)",
		"4.50",
		"&lt;script&gt;",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("ожидали %q в сообщении:\n%s", want, text)
		}
	}
	if strings.Contains(text, "<script>") {
		t.Fatalf("комментарий не экранирован")
	}
}

func TestFormatEventWithoutComment(t *testing.T) {
	empty := "   "
	for _, c := range []*string{nil, &empty} {
		if text := FormatEvent(event(c)); strings.Contains(text, "<i>") {
			t.Fatalf("пустой комментарий не должен выводиться: %s", text)
		}
	}
}

func TestFormatEventTruncatesLongComment(t *testing.T) {
	long := strings.Repeat("ж", commentLimit+50)
	text := FormatEvent(event(&long))
	start := strings.Index(text, "<i>")
	end := strings.Index(text, "</i>")
	if start < 0 || end < start {
		t.Fatalf("комментарий не найден:\n%s", text)
	}
	comment := text[start+len("<i>") : end]
	if got := strings.Count(comment, "ж"); got != commentLimit {
		t.Fatalf("ожидали обрезку до %d символов, получили %d", commentLimit, got)
	}
	if !strings.HasSuffix(comment, "…") {
		t.Fatalf("ожидали многоточие в конце комментария")
	}
	short := strings.Repeat("ж", commentLimit)
	if text := FormatEvent(event(&short)); strings.Contains(text, "…") {
		t.Fatalf("комментарий ровно на лимите не должен обрезаться")
	}
}

type stubSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, s.err
}

func TestTelegramNotify(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegramWithSender(sender, 777)
	if err := n.Notify(context.Background(), event(nil)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("ожидали одно сообщение, получили %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 777 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("неверные параметры сообщения: %+v", msg)
	}

	sender.err = errors.New("flood")
	if err := n.Notify(context.Background(), event(nil)); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
}
