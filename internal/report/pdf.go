// Package report renders a user's product ledger into a fixed-layout PDF.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"product-ledger/internal/domain"
)

// Layout constants in points, matching the report this service replaces.
const (
	titleY    = 80.0
	nameY     = 120.0
	emailY    = 140.0
	headerY   = 180.0
	ruleY     = 200.0
	firstRowY = 210.0
	rowStep   = 20.0

	colName  = 100.0
	colQty   = 300.0
	colRate  = 380.0
	colTotal = 460.0
	ruleEndX = 550.0
)

// Render produces the Products.pdf document for one user: a title block with
// the user's name and email, then one table row per ledger entry in stored
// order. Row totals are recomputed as qty*rate; the stored total and GST
// fields are not consulted.
func Render(user *domain.User) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 25)
	pdf.Text(colName, titleY, "Products Report")

	pdf.SetFontSize(15)
	pdf.Text(colName, nameY, fmt.Sprintf("Name: %s", user.Name))
	pdf.Text(colName, emailY, fmt.Sprintf("Email: %s", user.Email))

	pdf.SetFontSize(12)
	pdf.Text(colName, headerY, "Product Name")
	pdf.Text(colQty, headerY, "Quantity")
	pdf.Text(colRate, headerY, "Rate")
	pdf.Text(colTotal, headerY, "Total")
	pdf.Line(colName, ruleY, ruleEndX, ruleY)

	pdf.SetFontSize(10)
	for i, product := range user.Products {
		y := firstRowY + float64(i)*rowStep
		pdf.Text(colName, y, product.Name)
		pdf.Text(colQty, y, formatNumber(product.Qty))
		pdf.Text(colRate, y, "$"+formatNumber(product.Rate))
		pdf.Text(colTotal, y, fmt.Sprintf("$%.2f", product.Qty*product.Rate))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
