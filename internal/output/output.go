// Package output provides styled terminal output helpers (success, error,
// warning, record formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vempat/vempat/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	poStyles     = map[models.POStatus]lipgloss.Style{
		models.POStatusDraft:     lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.POStatusSent:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.POStatusReceived:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.POStatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
	movementStyles = map[models.MovementType]lipgloss.Style{
		models.MovementIn:         lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.MovementOut:        lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.MovementAdjustment: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}

	printer = message.NewPrinter(language.English)
)

// CurrencySymbol prefixes every amount.
const CurrencySymbol = "₦"

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Currency formats an amount with the currency symbol and digit grouping,
// e.g. ₦128,000.00.
func Currency(amount float64) string {
	return CurrencySymbol + printer.Sprintf("%.2f", amount)
}

// Truncate shortens s to width display cells, ANSI-aware.
func Truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}

// Cell pads or truncates s to exactly width display cells.
func Cell(s string, width int) string {
	s = Truncate(s, width)
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// FormatProductShort formats a product as one line.
func FormatProductShort(p *models.Product) string {
	stock := fmt.Sprintf("%d bags", p.Stock)
	if p.IsLowStock() {
		stock = warningStyle.Render(stock + " (low)")
	}
	return strings.Join([]string{
		titleStyle.Render(Cell(p.ID, 12)),
		Cell(p.Brand+" "+string(p.Type), 30),
		Cell(Currency(p.PricePerBag), 14),
		stock,
	}, "  ")
}

// FormatProductLong formats a product with every field.
func FormatProductLong(p *models.Product) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s %s", p.ID, p.Brand, p.Type)))
	sb.WriteString("\n")
	if p.ParticleSize != "" {
		fmt.Fprintf(&sb, "Particle size: %s\n", p.ParticleSize)
	}
	fmt.Fprintf(&sb, "Protein: %.1f%% | Weight: %.1fkg\n", p.ProteinPercent, p.WeightKg)
	fmt.Fprintf(&sb, "Price: %s per bag\n", Currency(p.PricePerBag))
	fmt.Fprintf(&sb, "Stock: %d (min %d)", p.Stock, p.MinStockThreshold)
	if p.IsLowStock() {
		sb.WriteString(" " + warningStyle.Render("LOW STOCK"))
	}
	sb.WriteString("\n")
	if !p.UpdatedAt.IsZero() {
		sb.WriteString(subtleStyle.Render("Updated " + Ago(p.UpdatedAt, time.Now())))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatSale formats a sale as one line.
func FormatSale(s *models.Sale) string {
	customer := s.CustomerName
	if customer == "" {
		customer = "walk-in"
	}
	return strings.Join([]string{
		subtleStyle.Render(formatDate(s.Date)),
		Cell(s.ProductName, 28),
		fmt.Sprintf("x%-4d", s.Quantity),
		Cell(Currency(s.TotalPrice), 14),
		customer,
	}, "  ")
}

// FormatMovement formats a stock movement as one line.
func FormatMovement(m *models.StockMovement) string {
	typ := string(m.Type)
	if st, ok := movementStyles[m.Type]; ok {
		typ = st.Render(Cell(typ, 10))
	}
	line := strings.Join([]string{
		subtleStyle.Render(formatDate(m.Timestamp)),
		typ,
		Cell(m.ProductName, 28),
		fmt.Sprintf("%d", m.Quantity),
	}, "  ")
	if m.Notes != "" {
		line += "  " + subtleStyle.Render(m.Notes)
	}
	return line
}

// FormatSupplier formats a supplier as one line.
func FormatSupplier(s *models.Supplier) string {
	return strings.Join([]string{
		titleStyle.Render(Cell(s.ID, 12)),
		Cell(s.Name, 24),
		Cell(s.ContactPerson, 18),
		s.Email,
	}, "  ")
}

// FormatPOStatus formats a purchase order status with color.
func FormatPOStatus(s models.POStatus) string {
	style, ok := poStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatPurchaseOrder formats a purchase order and its items.
func FormatPurchaseOrder(o *models.PurchaseOrder) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s  %s  %s  %s\n",
		titleStyle.Render(o.PONumber), FormatPOStatus(o.Status), o.SupplierName,
		Currency(o.TotalAmount), subtleStyle.Render(o.OrderDate))
	for _, it := range o.Items {
		fmt.Fprintf(&sb, "    - %s x%d @ %s\n", it.ProductName, it.Quantity, Currency(it.UnitPrice))
	}
	return sb.String()
}

// FormatQueueEntry formats an outbox entry as one line.
func FormatQueueEntry(e *models.QueueEntry, now time.Time) string {
	state := "due"
	switch {
	case e.Failed:
		state = errorStyle.Render("failed")
	case e.NextAttemptTime().After(now):
		state = subtleStyle.Render("retry in " + e.NextAttemptTime().Sub(now).Round(time.Second).String())
	}
	line := fmt.Sprintf("#%-5d %-6s %-15s %-14s attempts=%d  %s",
		e.ID, e.Op, e.Store, Truncate(e.Key, 14), e.Attempts, state)
	if e.LastError != "" {
		line += "  " + subtleStyle.Render(Truncate(e.LastError, 60))
	}
	return line
}

// FormatQueueStats renders the sync status indicator.
func FormatQueueStats(s models.QueueStats) string {
	switch {
	case s.Total == 0:
		return successStyle.Render("✓ all changes synced")
	case s.Failed > 0:
		return errorStyle.Render(fmt.Sprintf("✗ %d pending, %d failed", s.Pending, s.Failed))
	default:
		return warningStyle.Render(fmt.Sprintf("↻ %d pending", s.Pending))
	}
}

// FormatStats renders the business dashboard numbers.
func FormatStats(s models.BusinessStats) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("BUSINESS OVERVIEW"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Revenue:          %s\n", Currency(s.TotalRevenue))
	fmt.Fprintf(&sb, "Sales:            %d\n", s.TotalSales)
	fmt.Fprintf(&sb, "Inventory value:  %s\n", Currency(s.TotalInventoryValue))
	low := fmt.Sprintf("%d", s.LowStockItems)
	if s.LowStockItems > 0 {
		low = warningStyle.Render(low)
	}
	fmt.Fprintf(&sb, "Low stock items:  %s\n", low)
	return sb.String()
}

// formatDate shortens an RFC 3339 timestamp to "2006-01-02 15:04".
func formatDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return s
}

// Ago says how long before now t was: "just now", "5m ago", "3h ago" or
// "2d ago", and the plain date once it is a week old.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
	return t.Format("2006-01-02")
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
