package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"distripos/internal/dto"
	"distripos/internal/model"
	"distripos/internal/normalize"
	"distripos/internal/repository"
	"distripos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type DepositoService interface {
	// Crear opens an empty deposit shell. CodigoLote is the uniqueness key;
	// several deposits may legitimately share (ciudad, fecha).
	Crear(ctx context.Context, req dto.CrearDepositoRequest) (*dto.DepositoResponse, error)

	// AgregarVenta settles the sale identified by codigo_unico into the
	// deposit and adds its total. Idempotent per sale: re-adding the same
	// sale changes nothing.
	AgregarVenta(ctx context.Context, depositoID uuid.UUID, req dto.AgregarVentaRequest) (*dto.DepositoResponse, error)

	// Confirmar freezes the deposit; no further sales may be added.
	Confirmar(ctx context.Context, depositoID uuid.UUID) (*dto.DepositoResponse, error)

	List(ctx context.Context, filter dto.DepositoFilter) (*dto.DepositoListResponse, error)
}

type depositoService struct {
	repo       repository.DepositoRepository
	ventaRepo  repository.VentaRepository
	ventas     VentaService
	dispatcher *worker.Dispatcher
}

func NewDepositoService(
	repo repository.DepositoRepository,
	ventaRepo repository.VentaRepository,
	ventas VentaService,
	dispatcher *worker.Dispatcher,
) DepositoService {
	return &depositoService{
		repo:       repo,
		ventaRepo:  ventaRepo,
		ventas:     ventas,
		dispatcher: dispatcher,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *depositoService) Crear(ctx context.Context, req dto.CrearDepositoRequest) (*dto.DepositoResponse, error) {
	ciudad := normalize.Ciudad(req.Ciudad)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}

	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida: %w", err)
	}

	codigoLote := req.CodigoLote
	if codigoLote == "" {
		codigoLote = uuid.NewString()
	}
	if _, err := s.repo.FindByCodigoLote(ctx, codigoLote); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDepositoDuplicado, codigoLote)
	}

	deposito := model.Deposito{
		CodigoLote: codigoLote,
		Ciudad:     ciudad,
		Fecha:      fecha,
		Estado:     "pendiente",
	}
	if err := s.repo.Create(ctx, &deposito); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrDepositoDuplicado, codigoLote)
		}
		return nil, err
	}

	return depositoToResponse(&deposito), nil
}

// ── AgregarVenta ──────────────────────────────────────────────────────────────
// The deposit-total invariant (total == sum of member ventas' totals) holds
// because the settle and the total increment commit together, and the
// membership check makes re-adds no-ops.

func (s *depositoService) AgregarVenta(ctx context.Context, depositoID uuid.UUID, req dto.AgregarVentaRequest) (*dto.DepositoResponse, error) {
	venta, err := s.ventaRepo.FindByCodigoUnico(ctx, req.CodigoUnico)
	if err != nil {
		return nil, errors.New("venta no encontrada")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		deposito, err := s.repo.FindForUpdateTx(tx, depositoID)
		if err != nil {
			return errors.New("deposito no encontrado")
		}
		if deposito.Estado != "pendiente" {
			return ErrDepositoConfirmado
		}

		v, err := s.ventaRepo.FindForUpdateTx(tx, venta.ID)
		if err != nil {
			return errors.New("venta no encontrada")
		}

		agregada, err := s.ventas.LiquidarTx(tx, v, deposito.ID)
		if err != nil {
			return err
		}
		if !agregada {
			// Already a member — the running total must not double.
			log.Info().
				Str("deposito_id", deposito.ID.String()).
				Str("codigo_unico", v.CodigoUnico).
				Msg("deposito: venta ya agregada, se ignora")
			return nil
		}

		return s.repo.SumarTotalTx(tx, deposito.ID, v.Total)
	})
	if txErr != nil {
		return nil, txErr
	}

	deposito, err := s.repo.FindByID(ctx, depositoID)
	if err != nil {
		return nil, err
	}
	return depositoToResponse(deposito), nil
}

// ── Confirmar ─────────────────────────────────────────────────────────────────

func (s *depositoService) Confirmar(ctx context.Context, depositoID uuid.UUID) (*dto.DepositoResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ok, err := s.repo.ConfirmarTx(tx, depositoID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDepositoConfirmado
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	deposito, err := s.repo.FindByID(ctx, depositoID)
	if err != nil {
		return nil, err
	}

	// Back-office report is async — fire & forget.
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReporte(ctx, worker.ReporteJobPayload{
			DepositoID: deposito.ID.String(),
		}); err != nil {
			log.Error().Err(err).Str("deposito_id", deposito.ID.String()).
				Msg("deposito: no se pudo encolar reporte")
		}
	}

	return depositoToResponse(deposito), nil
}

func (s *depositoService) List(ctx context.Context, filter dto.DepositoFilter) (*dto.DepositoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Ciudad != "" {
		filter.Ciudad = normalize.Ciudad(filter.Ciudad)
	}
	depositos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DepositoResponse, 0, len(depositos))
	for i := range depositos {
		items = append(items, *depositoToResponse(&depositos[i]))
	}
	return &dto.DepositoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func depositoToResponse(d *model.Deposito) *dto.DepositoResponse {
	var confirmadoAt *string
	if d.ConfirmadoAt != nil {
		s := d.ConfirmadoAt.Format("2006-01-02T15:04:05Z")
		confirmadoAt = &s
	}
	return &dto.DepositoResponse{
		ID:           d.ID.String(),
		CodigoLote:   d.CodigoLote,
		Ciudad:       d.Ciudad,
		Fecha:        d.Fecha.Format("2006-01-02"),
		Total:        d.Total,
		Estado:       d.Estado,
		NumVentas:    len(d.Ventas),
		ConfirmadoAt: confirmadoAt,
		CreatedAt:    d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
