package htmlclean

import (
	"regexp"
	"strings"
)

var (
	// \s alone misses U+00A0, which help-center pages mix freely with
	// plain spaces.
	allWSRe = regexp.MustCompile(`[\s\x{00a0}]+`)

	// Noise that changes without changing meaning: update stamps, bare dates.
	noiseRe = regexp.MustCompile(`(?im)(Last\s+updated|Updated\s+on|Updated:|Опубликовано|Обновлено|Дата обновления)[^\n]*$|` +
		`\b\d{4}-\d{2}-\d{2}\b|` +
		`\b\d{1,2}\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+\d{4}\b`)

	// Navigation tails that trail the useful content on help-center pages.
	tailRe = regexp.MustCompile(`(?im)^(Назад к .*?|Back to .*?|Help Center|Справочный центр).*$`)

	doubleSpaceRe = regexp.MustCompile(` {2,}`)
)

// NormalizeForSignature stabilizes text before hashing so that date churn
// and boilerplate tails never register as a content change.
func NormalizeForSignature(plain string) string {
	s := strings.TrimSpace(plain)
	s = allWSRe.ReplaceAllString(s, " ")
	s = noiseRe.ReplaceAllString(s, "")
	s = tailRe.ReplaceAllString(s, "")
	s = doubleSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
