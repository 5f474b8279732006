// Package parser extracts structured invoice data from raw OCR text. It is
// heuristic by design: receipts photographed by shopkeepers produce noisy
// text, so the parser tries a strict pass first and degrades per product.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/cielo/internal/ocr/domain"
)

type knownProduct struct {
	SKU       string
	Name      string
	SKUDigits string
	Volume    string
	Price     float64
}

// The three demo products every pilot receipt carries.
var knownProducts = []knownProduct{
	{SKU: "AGUA-500", Name: "Agua Cielo 500ml", SKUDigits: "500", Volume: "500", Price: 1.5},
	{SKU: "AGUA-1000", Name: "Agua Cielo 1L", SKUDigits: "1000", Volume: "1", Price: 2.5},
	{SKU: "AGUA-2500", Name: "Agua Cielo 2.5L", SKUDigits: "2500", Volume: "2.5", Price: 5},
}

var (
	invoiceNumberRe = regexp.MustCompile(`FACTURA No:\s*([A-Za-z0-9-]+)`)
	dateRe          = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)
	quantityLineRe  = regexp.MustCompile(`^\d{1,4}$`)
	numberTokenRe   = regexp.MustCompile(`\$?\d+(?:\.\d+)?`)
)

// Parse runs the exact-match pass and falls back to the per-product search.
// It fails only when no product could be located at all.
func Parse(rawText string) (domain.ParseResult, error) {
	result := domain.ParseResult{
		InvoiceNumber: extractInvoiceNumber(rawText),
		Date:          extractDate(rawText),
	}

	lines := splitLines(rawText)

	if items, ok := exactMatch(lines); ok {
		result.Items = items
		return result, nil
	}

	items := perProductSearch(lines)
	if len(items) == 0 {
		return domain.ParseResult{}, domain.ErrNoDetection
	}
	result.Items = items
	return result, nil
}

func extractInvoiceNumber(rawText string) string {
	m := invoiceNumberRe.FindStringSubmatch(rawText)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractDate(rawText string) string {
	m := dateRe.FindStringSubmatch(rawText)
	if m == nil {
		return ""
	}
	parsed, err := time.Parse("02/01/2006", m[1])
	if err != nil {
		return ""
	}
	return parsed.Format("2006-01-02")
}

func splitLines(rawText string) []string {
	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// exactMatch succeeds only on cleanly segmented receipts: exactly three SKU
// lines, three name lines and three standalone quantity lines, zipped
// positionally against the fixed price list.
func exactMatch(lines []string) ([]domain.Item, bool) {
	var skus, names []string
	var quantities []int64

	for _, line := range lines {
		if p := productBySKULine(line); p != nil {
			skus = append(skus, p.SKU)
			continue
		}
		if p := productByNameLine(line); p != nil {
			names = append(names, p.Name)
			continue
		}
		if quantityLineRe.MatchString(line) {
			n, err := strconv.ParseInt(line, 10, 64)
			if err == nil && n > 0 && n < 1000 {
				quantities = append(quantities, n)
			}
		}
	}

	if len(skus) != 3 || len(names) != 3 || len(quantities) != 3 {
		return nil, false
	}

	items := make([]domain.Item, 3)
	for i := range items {
		items[i] = domain.Item{
			SKU:      skus[i],
			Name:     names[i],
			Quantity: quantities[i],
			Price:    priceFor(skus[i]),
		}
	}
	return items, true
}

func productBySKULine(line string) *knownProduct {
	for i := range knownProducts {
		if line == knownProducts[i].SKU {
			return &knownProducts[i]
		}
	}
	return nil
}

func productByNameLine(line string) *knownProduct {
	for i := range knownProducts {
		if line == knownProducts[i].Name {
			return &knownProducts[i]
		}
	}
	return nil
}

func priceFor(sku string) float64 {
	for _, p := range knownProducts {
		if p.SKU == sku {
			return p.Price
		}
	}
	return 0
}

// perProductSearch locates each product independently: its SKU line, the
// nearest following name line, then a plausible quantity within the next
// five lines. Products that never appear are omitted.
func perProductSearch(lines []string) []domain.Item {
	var items []domain.Item
	for _, p := range knownProducts {
		skuIdx := -1
		for i, line := range lines {
			if strings.Contains(line, p.SKU) {
				skuIdx = i
				break
			}
		}
		if skuIdx == -1 {
			continue
		}

		nameIdx := skuIdx
		for i := skuIdx + 1; i < len(lines); i++ {
			if strings.Contains(lines[i], p.Name) {
				nameIdx = i
				break
			}
		}

		quantity := int64(1)
		for i := nameIdx + 1; i < len(lines) && i <= nameIdx+5; i++ {
			if q, ok := findQuantity(lines[i], p); ok {
				quantity = q
				break
			}
		}

		items = append(items, domain.Item{
			SKU:      p.SKU,
			Name:     p.Name,
			Quantity: quantity,
			Price:    p.Price,
		})
	}
	return items
}

// findQuantity picks the first number in the line that cannot be something
// else: not the SKU's own digits, not a year, not the volume printed in the
// product name, and not shaped like a currency amount.
func findQuantity(line string, p knownProduct) (int64, bool) {
	for _, token := range numberTokenRe.FindAllString(line, -1) {
		if strings.HasPrefix(token, "$") {
			continue
		}
		if strings.Contains(token, ".") {
			// 15.000-style tokens are peso amounts, and fractional
			// quantities never appear on these receipts.
			continue
		}
		if token == p.SKUDigits || token == p.Volume {
			continue
		}
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		if n >= 2020 && n <= 2035 {
			continue
		}
		if n <= 0 || n > 1000 {
			continue
		}
		return n, true
	}
	return 0, false
}
