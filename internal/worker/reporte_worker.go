package worker

// reporte_worker.go
// Processes deposit report jobs from QueueReporte.
// Renders the PDF report of a confirmed deposit and mails it to the
// back-office address.

import (
	"context"
	"encoding/json"
	"fmt"

	"distripos/internal/infra"
	"distripos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReporteJobPayload is the job envelope sent to QueueReporte.
type ReporteJobPayload struct {
	DepositoID string `json:"deposito_id"`
}

// ReporteWorker generates and mails deposit reports.
type ReporteWorker struct {
	depositoRepo   repository.DepositoRepository
	mailer         *infra.Mailer
	reporteEmail   string
	pdfStoragePath string
}

func NewReporteWorker(
	depositoRepo repository.DepositoRepository,
	mailer *infra.Mailer,
	reporteEmail string,
	pdfStoragePath string,
) *ReporteWorker {
	return &ReporteWorker{
		depositoRepo:   depositoRepo,
		mailer:         mailer,
		reporteEmail:   reporteEmail,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process renders the PDF for a confirmed deposit and sends it by email.
// The report is best-effort: a failure here never affects the deposit itself.
func (w *ReporteWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReporteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("reporte_worker: invalid payload")
		return
	}

	depositoID, err := uuid.Parse(payload.DepositoID)
	if err != nil {
		log.Error().Str("deposito_id", payload.DepositoID).Msg("reporte_worker: invalid deposito_id")
		return
	}

	deposito, err := w.depositoRepo.FindByID(ctx, depositoID)
	if err != nil {
		log.Error().Err(err).Str("deposito_id", payload.DepositoID).Msg("reporte_worker: deposito not found")
		return
	}

	pdfPath, err := infra.GenerateDepositoPDF(deposito, w.pdfStoragePath)
	if err != nil {
		log.Error().Err(err).Str("deposito_id", payload.DepositoID).Msg("reporte_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("deposito_id", payload.DepositoID).Msg("reporte_worker: PDF generated")

	if w.reporteEmail == "" {
		log.Warn().Msg("reporte_worker: no back-office email configured, skipping send")
		return
	}

	subject := fmt.Sprintf("Depósito %s — %s %s",
		deposito.CodigoLote, deposito.Ciudad, deposito.Fecha.Format("02/01/2006"))
	body := fmt.Sprintf("Depósito confirmado.\nCiudad: %s\nTotal: Bs %s\nVentas liquidadas: %d",
		deposito.Ciudad, deposito.Total.StringFixed(2), len(deposito.Ventas))

	if err := w.mailer.SendReporte(w.reporteEmail, subject, body, pdfPath); err != nil {
		log.Error().Err(err).Str("deposito_id", payload.DepositoID).Msg("reporte_worker: failed to send email")
		return
	}
	log.Info().Str("to", w.reporteEmail).Str("deposito_id", payload.DepositoID).Msg("reporte_worker: report sent")
}
