package infra

// pdf.go — Deposit report generation using go-pdf/fpdf.
// An A4 report listing every settled sale of the deposit:
//   - City and deposit date header
//   - Batch code and confirmation timestamp
//   - Sale table (code, SKU, quantity, total)
//   - Bold grand total
//
// The output file is saved to storagePath/deposito_{codigo_lote}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"distripos/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateDepositoPDF renders the report for a confirmed Deposito (the Ventas
// association must be preloaded). storagePath is created if needed.
// Returns the absolute path to the generated file.
func GenerateDepositoPDF(deposito *model.Deposito, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("deposito_%s.pdf", deposito.CodigoLote)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "DistriPOS", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, "Reporte de Depósito", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Deposit info ──────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Ciudad: %s", deposito.Ciudad), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Fecha: %s", deposito.Fecha.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Lote: %s", deposito.CodigoLote), "", 1, "L", false, 0, "")
	if deposito.ConfirmadoAt != nil {
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Confirmado: %s", deposito.ConfirmadoAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Sales table header ────────────────────────────────────────────────────
	col1 := contentW * 0.34 // sale code
	col2 := contentW * 0.26 // sku
	col3 := contentW * 0.14 // qty
	col4 := contentW * 0.26 // total

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Código", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col4, 6, "Total", "B", 1, "R", false, 0, "")

	// ── Sale rows ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	for _, v := range deposito.Ventas {
		sku := v.Sku
		if v.SkuExtra != nil {
			sku += " +" + *v.SkuExtra
		}
		pdf.CellFormat(col1, 6, v.CodigoUnico, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, sku, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 6, fmt.Sprintf("x%d", v.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col4, 6, "Bs "+v.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Grand total ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 7, "TOTAL DEPÓSITO:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 7, "Bs "+deposito.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%d ventas liquidadas", len(deposito.Ventas)), "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
