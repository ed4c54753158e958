package output

import (
	"strings"
	"testing"
	"time"

	"github.com/vempat/vempat/internal/models"
)

func TestAgo(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{time.Hour, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{6 * 24 * time.Hour, "6d ago"},
		{8 * 24 * time.Hour, "2024-05-07"},
		{-time.Hour, "just now"},
	}
	for _, tt := range tests {
		if got := Ago(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("Ago(now-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestSectionHeader(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"low stock", "\nLOW STOCK:\n"},
		{"Queue", "\nQUEUE:\n"},
	}

	for _, tc := range tests {
		result := SectionHeader(tc.title)
		if result != tc.expected {
			t.Errorf("SectionHeader(%q) = %q, want %q", tc.title, result, tc.expected)
		}
	}
}

func TestCurrencyGroupsDigits(t *testing.T) {
	got := Currency(128000)
	if !strings.HasPrefix(got, CurrencySymbol) || !strings.Contains(got, "128,000") {
		t.Errorf("Currency(128000) = %q", got)
	}
	if got := Currency(7.5); !strings.Contains(got, "7.50") {
		t.Errorf("Currency(7.5) = %q", got)
	}
}

func TestCellPadsAndTruncates(t *testing.T) {
	if got := Cell("abc", 6); got != "abc   " {
		t.Errorf("Cell pad = %q", got)
	}
	got := Cell("Premium Starter Crumble", 8)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Cell truncate = %q", got)
	}
	if w := len([]rune(got)); w != 8 {
		t.Errorf("Cell width = %d, want 8", w)
	}
}

func TestFormatProductShortFlagsLowStock(t *testing.T) {
	p := &models.Product{ID: "p1", Brand: "Topfeeds", Type: models.FeedGrower, PricePerBag: 9500, Stock: 3, MinStockThreshold: 5}
	line := FormatProductShort(p)
	for _, want := range []string{"p1", "Topfeeds Grower", "3 bags", "(low)"} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %q in %q", want, line)
		}
	}

	p.Stock = 50
	if strings.Contains(FormatProductShort(p), "(low)") {
		t.Error("healthy stock flagged low")
	}
}

func TestFormatProductLong(t *testing.T) {
	p := &models.Product{ID: "p1", Brand: "Vital", Type: models.FeedStarter, ParticleSize: "crumble", ProteinPercent: 22, WeightKg: 25, Stock: 1, MinStockThreshold: 2}
	out := FormatProductLong(p)
	for _, want := range []string{"p1: Vital Starter", "Particle size: crumble", "Protein: 22.0%", "LOW STOCK"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatSaleWalkIn(t *testing.T) {
	s := &models.Sale{ProductName: "Vital Starter", Quantity: 2, TotalPrice: 19000, Date: "2024-06-01T10:00:00Z"}
	if line := FormatSale(s); !strings.Contains(line, "walk-in") || !strings.Contains(line, "x2") {
		t.Errorf("FormatSale = %q", line)
	}
}

func TestFormatQueueEntryStates(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tests := []struct {
		name  string
		entry models.QueueEntry
		want  string
	}{
		{"due", models.QueueEntry{ID: 1, Op: models.OpCreate, Store: models.CollectionProducts, Key: "p1", NextAttemptAt: 1_000_000}, "due"},
		{"waiting", models.QueueEntry{ID: 2, Op: models.OpUpdate, Store: models.CollectionProducts, Key: "p1", Attempts: 2, NextAttemptAt: 1_004_000}, "retry in 4s"},
		{"failed", models.QueueEntry{ID: 3, Op: models.OpDelete, Store: models.CollectionSales, Key: "s1", Attempts: 6, Failed: true, LastError: "HTTP 500"}, "failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := FormatQueueEntry(&tc.entry, now)
			if !strings.Contains(line, tc.want) {
				t.Errorf("FormatQueueEntry = %q, want substring %q", line, tc.want)
			}
		})
	}
}

func TestFormatQueueStats(t *testing.T) {
	tests := []struct {
		stats models.QueueStats
		want  string
	}{
		{models.QueueStats{}, "all changes synced"},
		{models.QueueStats{Total: 2, Pending: 2}, "2 pending"},
		{models.QueueStats{Total: 3, Pending: 2, Failed: 1}, "1 failed"},
	}
	for _, tc := range tests {
		if got := FormatQueueStats(tc.stats); !strings.Contains(got, tc.want) {
			t.Errorf("FormatQueueStats(%+v) = %q, want %q", tc.stats, got, tc.want)
		}
	}
}

func TestFailedReport(t *testing.T) {
	if r := FailedReport(nil); !strings.Contains(r, "Nothing is quarantined") {
		t.Errorf("empty report = %q", r)
	}
	r := FailedReport([]models.QueueEntry{{ID: 7, Op: models.OpUpdate, Store: models.CollectionSales, Key: "s1", Attempts: 6, Failed: true, LastError: "a|b"}})
	for _, want := range []string{"(1)", "| 7 | update | receipts | `s1` | 6 |", `a\|b`} {
		if !strings.Contains(r, want) {
			t.Errorf("missing %q in:\n%s", want, r)
		}
	}
}

func TestRenderMarkdownBlank(t *testing.T) {
	out, err := renderMarkdown("   ", 40)
	if err != nil || out != "" {
		t.Errorf("renderMarkdown(blank) = %q, %v", out, err)
	}
}

func TestWidthFallsBackToColumns(t *testing.T) {
	if IsTerminal() {
		t.Skip("stdout is a terminal")
	}
	t.Setenv("COLUMNS", "123")
	if got := Width(); got != 123 {
		t.Errorf("Width() = %d, want 123", got)
	}
	t.Setenv("COLUMNS", "nope")
	if got := Width(); got != 80 {
		t.Errorf("Width() = %d, want 80", got)
	}
}
