package service_test

import (
	"context"
	"time"

	"distripos/internal/dto"
	"distripos/internal/model"
	"distripos/internal/repository"
	"distripos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repositories. DB() returns nil so the services run their
// transaction bodies directly against these maps.

// ── stubVentaRepo ─────────────────────────────────────────────────────────────

type stubVentaRepo struct {
	ventas    map[uuid.UUID]*model.Venta
	codigoIdx map[string]*model.Venta

	// findCodigoErr, when set, is returned by FindByCodigoUnico to
	// simulate a transient DB failure.
	findCodigoErr error
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{
		ventas:    make(map[uuid.UUID]*model.Venta),
		codigoIdx: make(map[string]*model.Venta),
	}
}

func (r *stubVentaRepo) CreateTx(_ *gorm.DB, v *model.Venta) error {
	if _, dup := r.codigoIdx[v.CodigoUnico]; dup {
		return gorm.ErrDuplicatedKey
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	r.ventas[v.ID] = v
	r.codigoIdx[v.CodigoUnico] = v
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubVentaRepo) FindByCodigoUnico(_ context.Context, codigo string) (*model.Venta, error) {
	if r.findCodigoErr != nil {
		return nil, r.findCodigoErr
	}
	v, ok := r.codigoIdx[codigo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubVentaRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubVentaRepo) UpdateEstadoEntregaTx(_ *gorm.DB, id uuid.UUID, desde, hacia string, _ map[string]interface{}) (bool, error) {
	v, ok := r.ventas[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if v.EstadoEntrega != desde {
		return false, nil
	}
	v.EstadoEntrega = hacia
	return true, nil
}

func (r *stubVentaRepo) UpdatesTx(_ *gorm.DB, id uuid.UUID, _ map[string]interface{}) error {
	// The services keep the in-memory struct in sync themselves; the stub
	// only needs to confirm the row exists.
	if _, ok := r.ventas[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stubVentaRepo) List(_ context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	out := make([]model.Venta, 0, len(r.ventas))
	for _, v := range r.ventas {
		if filter.Ciudad != "" && v.Ciudad != filter.Ciudad {
			continue
		}
		if filter.Estado != "" && filter.Estado != "all" && v.EstadoEntrega != filter.Estado {
			continue
		}
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) ListPendientes(_ context.Context, filter dto.PendientesFilter) ([]model.Venta, int64, error) {
	out := make([]model.Venta, 0, len(r.ventas))
	for _, v := range r.ventas {
		if !v.EnPendientes() || v.EstadoPago != model.PagoPendiente {
			continue
		}
		if filter.Ciudad != "" && v.Ciudad != filter.Ciudad {
			continue
		}
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// ── stubProductoRepo ──────────────────────────────────────────────────────────

type stubProductoRepo struct {
	porSku       map[string]*model.Producto
	porID        map[uuid.UUID]*model.Producto
	ventasPorSku map[string]int64
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{
		porSku:       make(map[string]*model.Producto),
		porID:        make(map[uuid.UUID]*model.Producto),
		ventasPorSku: make(map[string]int64),
	}
}

func (r *stubProductoRepo) seed(sku string, stockCentral int) *model.Producto {
	p := &model.Producto{
		ID:           uuid.New(),
		Sku:          sku,
		Nombre:       "Producto " + sku,
		PrecioVenta:  decimal.NewFromInt(100),
		StockCentral: stockCentral,
		Activo:       true,
	}
	r.porSku[sku] = p
	r.porID[p.ID] = p
	return p
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if _, dup := r.porSku[p.Sku]; dup {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.porSku[p.Sku] = p
	r.porID[p.ID] = p
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.porID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductoRepo) FindBySku(_ context.Context, sku string) (*model.Producto, error) {
	p, ok := r.porSku[sku]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	out := make([]model.Producto, 0, len(r.porSku))
	for _, p := range r.porSku {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductoRepo) ListSkus(_ context.Context) ([]string, error) {
	skus := make([]string, 0, len(r.porSku))
	for sku := range r.porSku {
		skus = append(skus, sku)
	}
	return skus, nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.porID[p.ID] = p
	r.porSku[p.Sku] = p
	return nil
}

func (r *stubProductoRepo) Delete(_ context.Context, id uuid.UUID) error {
	p, ok := r.porID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.porID, id)
	delete(r.porSku, p.Sku)
	return nil
}

func (r *stubProductoRepo) CountVentasPorSku(_ context.Context, sku string) (int64, error) {
	return r.ventasPorSku[sku], nil
}

func (r *stubProductoRepo) DescontarStockCentralTx(_ *gorm.DB, sku string, cantidad int) error {
	p, ok := r.porSku[sku]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockCentral -= cantidad
	return nil
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

// ── stubStockRepo ─────────────────────────────────────────────────────────────

type stubStockRepo struct {
	celdas      map[string]*model.StockCiudad
	movimientos []model.MovimientoStock
	aplicados   map[uuid.UUID]bool
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{
		celdas:    make(map[string]*model.StockCiudad),
		aplicados: make(map[uuid.UUID]bool),
	}
}

func cellKey(ciudad, sku string) string { return ciudad + "/" + sku }

func (r *stubStockRepo) seed(ciudad, sku string, cantidad int) {
	r.celdas[cellKey(ciudad, sku)] = &model.StockCiudad{
		ID:       uuid.New(),
		Ciudad:   ciudad,
		Sku:      sku,
		Cantidad: cantidad,
	}
}

func (r *stubStockRepo) cantidad(ciudad, sku string) int {
	if c, ok := r.celdas[cellKey(ciudad, sku)]; ok {
		return c.Cantidad
	}
	return 0
}

// celda returns the live map entry, creating a zero cell when absent.
// Mutating methods go through here; reads hand out copies like a real
// SELECT does.
func (r *stubStockRepo) celda(ciudad, sku string) *model.StockCiudad {
	key := cellKey(ciudad, sku)
	c, ok := r.celdas[key]
	if !ok {
		c = &model.StockCiudad{ID: uuid.New(), Ciudad: ciudad, Sku: sku, Cantidad: 0}
		r.celdas[key] = c
	}
	return c
}

func (r *stubStockRepo) FindCelda(_ context.Context, ciudad, sku string) (*model.StockCiudad, error) {
	c, ok := r.celdas[cellKey(ciudad, sku)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubStockRepo) ListPorCiudad(_ context.Context, ciudad string) ([]model.StockCiudad, error) {
	out := []model.StockCiudad{}
	for _, c := range r.celdas {
		if c.Ciudad == ciudad {
			out = append(out, *c)
		}
	}
	return out, nil
}

// FindCeldaForUpdateTx returns a detached copy, like a real
// SELECT ... FOR UPDATE row: later writes must not mutate the snapshot
// the caller already holds.
func (r *stubStockRepo) FindCeldaForUpdateTx(_ *gorm.DB, ciudad, sku string) (*model.StockCiudad, error) {
	cp := *r.celda(ciudad, sku)
	return &cp, nil
}

func (r *stubStockRepo) DescontarTx(_ *gorm.DB, ciudad, sku string, cantidad int) (bool, error) {
	c, ok := r.celdas[cellKey(ciudad, sku)]
	if !ok || c.Cantidad < cantidad {
		return false, nil
	}
	c.Cantidad -= cantidad
	return true, nil
}

func (r *stubStockRepo) IncrementarTx(_ *gorm.DB, ciudad, sku string, cantidad int) error {
	r.celda(ciudad, sku).Cantidad += cantidad
	return nil
}

func (r *stubStockRepo) SetCantidadTx(_ *gorm.DB, ciudad, sku string, cantidad int) error {
	r.celda(ciudad, sku).Cantidad = cantidad
	return nil
}

func (r *stubStockRepo) MarcarDespachoAplicadoTx(_ *gorm.DB, despachoID uuid.UUID) (bool, error) {
	if r.aplicados[despachoID] {
		return false, nil
	}
	r.aplicados[despachoID] = true
	return true, nil
}

func (r *stubStockRepo) RegistrarMovimientoTx(_ *gorm.DB, mov *model.MovimientoStock) error {
	if mov.ID == uuid.Nil {
		mov.ID = uuid.New()
	}
	mov.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *mov)
	return nil
}

func (r *stubStockRepo) ListMovimientos(_ context.Context, ciudad, sku string, limit int) ([]model.MovimientoStock, error) {
	out := []model.MovimientoStock{}
	for i := len(r.movimientos) - 1; i >= 0 && len(out) < limit; i-- {
		mov := r.movimientos[i]
		if mov.Ciudad != ciudad {
			continue
		}
		if sku != "" && mov.Sku != sku {
			continue
		}
		out = append(out, mov)
	}
	return out, nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

var _ repository.StockRepository = (*stubStockRepo)(nil)

// ── stubDepositoRepo ──────────────────────────────────────────────────────────

type stubDepositoRepo struct {
	depositos map[uuid.UUID]*model.Deposito
	loteIdx   map[string]*model.Deposito
}

func newStubDepositoRepo() *stubDepositoRepo {
	return &stubDepositoRepo{
		depositos: make(map[uuid.UUID]*model.Deposito),
		loteIdx:   make(map[string]*model.Deposito),
	}
}

func (r *stubDepositoRepo) Create(_ context.Context, d *model.Deposito) error {
	if _, dup := r.loteIdx[d.CodigoLote]; dup {
		return gorm.ErrDuplicatedKey
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	r.depositos[d.ID] = d
	r.loteIdx[d.CodigoLote] = d
	return nil
}

func (r *stubDepositoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Deposito, error) {
	d, ok := r.depositos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *stubDepositoRepo) FindByCodigoLote(_ context.Context, codigo string) (*model.Deposito, error) {
	d, ok := r.loteIdx[codigo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *stubDepositoRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Deposito, error) {
	d, ok := r.depositos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *stubDepositoRepo) SumarTotalTx(_ *gorm.DB, id uuid.UUID, monto decimal.Decimal) error {
	d, ok := r.depositos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Total = d.Total.Add(monto)
	return nil
}

func (r *stubDepositoRepo) ConfirmarTx(_ *gorm.DB, id uuid.UUID) (bool, error) {
	d, ok := r.depositos[id]
	if !ok || d.Estado != "pendiente" {
		return false, nil
	}
	now := time.Now().UTC()
	d.Estado = "confirmado"
	d.ConfirmadoAt = &now
	return true, nil
}

func (r *stubDepositoRepo) List(_ context.Context, filter dto.DepositoFilter) ([]model.Deposito, int64, error) {
	out := make([]model.Deposito, 0, len(r.depositos))
	for _, d := range r.depositos {
		if filter.Ciudad != "" && d.Ciudad != filter.Ciudad {
			continue
		}
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (r *stubDepositoRepo) DB() *gorm.DB { return nil }

var _ repository.DepositoRepository = (*stubDepositoRepo)(nil)

// ── stubDespachoRepo ──────────────────────────────────────────────────────────

type stubDespachoRepo struct {
	despachos map[uuid.UUID]*model.Despacho
}

func newStubDespachoRepo() *stubDespachoRepo {
	return &stubDespachoRepo{despachos: make(map[uuid.UUID]*model.Despacho)}
}

func (r *stubDespachoRepo) Create(_ context.Context, d *model.Despacho) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	for i := range d.Items {
		d.Items[i].ID = uuid.New()
		d.Items[i].DespachoID = d.ID
	}
	d.CreatedAt = time.Now()
	r.despachos[d.ID] = d
	return nil
}

func (r *stubDespachoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Despacho, error) {
	d, ok := r.despachos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *stubDespachoRepo) UpdateEstadoTx(_ *gorm.DB, id uuid.UUID, estado string) error {
	d, ok := r.despachos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Estado = estado
	return nil
}

func (r *stubDespachoRepo) ListPorCiudad(_ context.Context, ciudad string, limit int) ([]model.Despacho, error) {
	out := []model.Despacho{}
	for _, d := range r.despachos {
		if d.Ciudad == ciudad && len(out) < limit {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *stubDespachoRepo) DB() *gorm.DB { return nil }

var _ repository.DespachoRepository = (*stubDespachoRepo)(nil)

// ── stubNotificacionRepo ──────────────────────────────────────────────────────

type stubNotificacionRepo struct {
	notifs map[uuid.UUID]*model.Notificacion
}

func newStubNotificacionRepo() *stubNotificacionRepo {
	return &stubNotificacionRepo{notifs: make(map[uuid.UUID]*model.Notificacion)}
}

func (r *stubNotificacionRepo) Create(_ context.Context, n *model.Notificacion) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifs[n.ID] = n
	return nil
}

func (r *stubNotificacionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Notificacion, error) {
	n, ok := r.notifs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return n, nil
}

func (r *stubNotificacionRepo) MarcarEnviada(_ context.Context, id uuid.UUID) error {
	n, ok := r.notifs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now().UTC()
	n.Estado = "enviada"
	n.EnviadaAt = &now
	return nil
}

func (r *stubNotificacionRepo) MarcarError(_ context.Context, id uuid.UUID, lastError string) error {
	n, ok := r.notifs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.Estado = "error"
	n.LastError = &lastError
	return nil
}

func (r *stubNotificacionRepo) ProgramarRetry(_ context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error {
	n, ok := r.notifs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.RetryCount++
	n.NextRetryAt = &nextRetryAt
	n.LastError = &lastError
	return nil
}

func (r *stubNotificacionRepo) ListPendientesRetry(_ context.Context, limit int) ([]model.Notificacion, error) {
	out := []model.Notificacion{}
	now := time.Now()
	for _, n := range r.notifs {
		if n.Estado == "pendiente" && n.NextRetryAt != nil && n.NextRetryAt.Before(now) && len(out) < limit {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *stubNotificacionRepo) DB() *gorm.DB { return nil }

var _ repository.NotificacionRepository = (*stubNotificacionRepo)(nil)

// ── stubUsuarioRepo ───────────────────────────────────────────────────────────

type stubUsuarioRepo struct {
	usuarios map[uuid.UUID]*model.Usuario
	userIdx  map[string]*model.Usuario
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{
		usuarios: make(map[uuid.UUID]*model.Usuario),
		userIdx:  make(map[string]*model.Usuario),
	}
}

func (r *stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if _, dup := r.userIdx[u.Username]; dup {
		return gorm.ErrDuplicatedKey
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.usuarios[u.ID] = u
	r.userIdx[u.Username] = u
	return nil
}

func (r *stubUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	u, ok := r.userIdx[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	out := []model.Usuario{}
	for _, u := range r.usuarios {
		if u.Activo {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUsuarioRepo) ListAll(_ context.Context) ([]model.Usuario, error) {
	out := []model.Usuario{}
	for _, u := range r.usuarios {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.usuarios[u.ID] = u
	r.userIdx[u.Username] = u
	return nil
}

func (r *stubUsuarioRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	u, ok := r.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Activo = false
	return nil
}

func (r *stubUsuarioRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	u, ok := r.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Activo = true
	return nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

// ── Builders ──────────────────────────────────────────────────────────────────

func buildVentaSvc() (service.VentaService, *stubVentaRepo, *stubProductoRepo, *stubStockRepo, *stubNotificacionRepo) {
	ventaRepo := newStubVentaRepo()
	productoRepo := newStubProductoRepo()
	stockRepo := newStubStockRepo()
	notifRepo := newStubNotificacionRepo()
	stockSvc := service.NewStockService(stockRepo)
	svc := service.NewVentaService(ventaRepo, productoRepo, notifRepo, stockSvc, nil)
	return svc, ventaRepo, productoRepo, stockRepo, notifRepo
}

func buildDespachoSvc() (service.DespachoService, *stubDespachoRepo, *stubProductoRepo, *stubStockRepo) {
	despachoRepo := newStubDespachoRepo()
	productoRepo := newStubProductoRepo()
	stockRepo := newStubStockRepo()
	svc := service.NewDespachoService(despachoRepo, productoRepo, service.NewStockService(stockRepo))
	return svc, despachoRepo, productoRepo, stockRepo
}

func buildDepositoSvc() (service.DepositoService, service.VentaService, *stubDepositoRepo, *stubVentaRepo, *stubProductoRepo, *stubStockRepo) {
	depositoRepo := newStubDepositoRepo()
	ventaRepo := newStubVentaRepo()
	productoRepo := newStubProductoRepo()
	stockRepo := newStubStockRepo()
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, newStubNotificacionRepo(), service.NewStockService(stockRepo), nil)
	svc := service.NewDepositoService(depositoRepo, ventaRepo, ventaSvc, nil)
	return svc, ventaSvc, depositoRepo, ventaRepo, productoRepo, stockRepo
}
