package notifier

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"freelancer-feedback/internal/domain"
)

// commentLimit ограничивает длину комментария в уведомлении (в рунах).
const commentLimit = 1000

// FormatEvent собирает HTML сообщение о новом отзыве.
func FormatEvent(event domain.FeedbackEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Новый отзыв #%d</b>\n", event.FeedbackID)
	fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", escapeAttr(event.ProfileURL), escape(event.FreelancerName))
	fmt.Fprintf(&b, "Общая оценка: %s (%d/%d)\n", stars(event.OverallRating), event.OverallRating, domain.RatingMax)
	fmt.Fprintf(&b, "Средняя по критериям: %.2f", event.MeanRating)
	if event.Comments != nil && strings.TrimSpace(*event.Comments) != "" {
		fmt.Fprintf(&b, "\n\n<i>%s</i>", escape(truncate(strings.TrimSpace(*event.Comments), commentLimit)))
	}
	return b.String()
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > domain.RatingMax {
		rating = domain.RatingMax
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", domain.RatingMax-rating)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escape(s), `"`, "&quot;")
}
