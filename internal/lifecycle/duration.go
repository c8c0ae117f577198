package lifecycle

import (
	"regexp"
	"strconv"
	"strings"
)

var daysRe = regexp.MustCompile(`(?i)(\d+)\s*days?`)

// DurationDays разбирает строку длительности плана, например "30 days" или "7 days".
// Если числа с днями нет - месяц считаем за 30 дней, неделю за 7.
// Для всего остального ("Custom") возвращаем 0, дата окончания остается пустой.
func DurationDays(duration string) int {
	if m := daysRe.FindStringSubmatch(duration); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return days
		}
	}
	lower := strings.ToLower(duration)
	if strings.Contains(lower, "month") {
		return 30
	}
	if strings.Contains(lower, "week") {
		return 7
	}
	return 0
}
