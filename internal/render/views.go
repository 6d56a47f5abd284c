// Package render реализует терминальные представления корзины: счётчик и панель.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EmptyCartMessage выводится в панели пустой корзины.
const EmptyCartMessage = "SEU CARRINHO ESTÁ VAZIO.\nAPROVEITE O DROP ANTES QUE ACABE."

var (
	urgency = lipgloss.Color("#D44A14")
	muted   = lipgloss.Color("#8A8F98")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(urgency).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	totalStyle  = lipgloss.NewStyle().Bold(true).Foreground(urgency)
	removeStyle = lipgloss.NewStyle().Foreground(urgency)
)

// Badge печатает количество единиц в корзине.
type Badge struct {
	w io.Writer
}

// NewBadge создаёт счётчик, пишущий в w.
func NewBadge(w io.Writer) *Badge {
	return &Badge{w: w}
}

// ShowCount выводит текущее значение счётчика.
func (b *Badge) ShowCount(count int) {
	_, _ = fmt.Fprintf(b.w, "carrinho (%d)\n", count)
}

// Panel показывает панель корзины. Пока панель закрыта, Render только запоминает
// последнее состояние; Open выводит его.
type Panel struct {
	w     io.Writer
	open  bool
	last  string
	style lipgloss.Style
}

// NewPanel создаёт закрытую панель, пишущую в w.
func NewPanel(w io.Writer) *Panel {
	return &Panel{w: w, style: panelStyle}
}

// IsOpen сообщает, показана ли панель.
func (p *Panel) IsOpen() bool { return p.open }

// Open показывает панель с последним отрисованным содержимым.
func (p *Panel) Open() {
	p.open = true
	p.flush()
}

// Close скрывает панель.
func (p *Panel) Close() { p.open = false }

// Render полностью перерисовывает содержимое панели.
func (p *Panel) Render(items []domain.LineItem, total decimal.Decimal) {
	p.last = p.style.Render(Detail(items, total))
	if p.open {
		p.flush()
	}
}

func (p *Panel) flush() {
	if p.last == "" {
		return
	}
	_, _ = fmt.Fprintln(p.w, p.last)
}

// Detail строит текст панели без рамки: позиции (нумерация с 1), цену за
// единицу, количество и итог.
func Detail(items []domain.LineItem, total decimal.Decimal) string {
	if len(items) == 0 {
		return mutedStyle.Render(EmptyCartMessage) + "\n" + totalStyle.Render("TOTAL "+FormatBRL(decimal.Zero))
	}

	var b strings.Builder
	for idx, item := range items {
		fmt.Fprintf(&b, "%s %s\n",
			mutedStyle.Render(fmt.Sprintf("#%d", idx+1)),
			titleStyle.Render(strings.ToUpper(item.Name)),
		)
		fmt.Fprintf(&b, "   %s  x%d  = %s  %s\n",
			mutedStyle.Render(FormatBRL(item.Price)),
			item.Quantity,
			FormatBRL(item.Subtotal()),
			removeStyle.Render("[remover]"),
		)
	}
	b.WriteString(totalStyle.Render("TOTAL " + FormatBRL(total)))
	return b.String()
}
