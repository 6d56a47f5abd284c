package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL форматирует сумму как на витрине: "R$ 59,80".
func FormatBRL(amount decimal.Decimal) string {
	return "R$ " + strings.Replace(amount.StringFixed(2), ".", ",", 1)
}
