package funcs

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/cradoe/quizash/internal/money"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var TemplateFuncs = template.FuncMap{
	"formatMoney": formatMoney,
	"formatTime":  formatTime,
	"formatInt":   formatInt,
}

// formatMoney renders a Money value for humans, e.g. "₦1,000.00".
// Only the display string is manipulated here; no float arithmetic.
func formatMoney(amount money.Money) string {
	s := amount.String()

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)

	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "₦" + amount.String()
	}

	formatted := printer.Sprintf("%d", whole) + "." + parts[1]
	if negative {
		formatted = "-" + formatted
	}

	return "₦" + formatted
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

func formatInt(i int) string {
	return printer.Sprintf("%d", i)
}
