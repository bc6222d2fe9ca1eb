package router

import (
	"time"

	"distripos/internal/config"
	"distripos/internal/handler"
	"distripos/internal/infra"
	"distripos/internal/middleware"
	"distripos/internal/repository"
	"distripos/internal/service"
	"distripos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, waCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	stockRepo := repository.NewStockRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	depositoRepo := repository.NewDepositoRepository(db)
	despachoRepo := repository.NewDespachoRepository(db)
	notifRepo := repository.NewNotificacionRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo)
	stockSvc := service.NewStockService(stockRepo)
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, notifRepo, stockSvc, dispatcher)
	depositoSvc := service.NewDepositoService(depositoRepo, ventaRepo, ventaSvc, dispatcher)
	despachoSvc := service.NewDespachoService(despachoRepo, productoRepo, stockSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	stockH := handler.NewStockHandler(stockSvc, rdb)
	ventasH := handler.NewVentasHandler(ventaSvc)
	depositosH := handler.NewDepositosHandler(depositoSvc)
	despachosH := handler.NewDespachosHandler(despachoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, waCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: vendedor, supervisor, administrador — declared per-endpoint
		ventas := v1.Group("/ventas", middleware.RequireRole("vendedor", "supervisor", "administrador"))
		{
			ventas.POST("", ventasH.Crear)
			ventas.GET("", ventasH.Listar)
			ventas.GET("/pendientes", ventasH.ListarPendientes)
			ventas.POST("/:id/confirmar", ventasH.Confirmar)
			ventas.POST("/:id/entregar", ventasH.Entregar)
			ventas.POST("/:id/cancelar", ventasH.Cancelar)
			ventas.PUT("/:id", ventasH.Editar)
		}

		// Deposits move money — supervisor or administrador
		depositos := v1.Group("/depositos", middleware.RequireRole("supervisor", "administrador"))
		{
			depositos.POST("", depositosH.Crear)
			depositos.GET("", depositosH.Listar)
			depositos.POST("/:id/ventas", depositosH.AgregarVenta)
			depositos.POST("/:id/confirmar", depositosH.Confirmar)
		}

		// Dispatches feed the city ledgers — supervisor or administrador
		despachos := v1.Group("/despachos", middleware.RequireRole("supervisor", "administrador"))
		{
			despachos.POST("", despachosH.Crear)
			despachos.POST("/:id/confirmar", despachosH.Confirmar)
			despachos.GET("/ciudad/:ciudad", despachosH.ListarPorCiudad)
		}

		// Stock reads for everyone; manual adjustment is supervised
		stock := v1.Group("/stock", middleware.RequireRole("vendedor", "supervisor", "administrador"))
		{
			stock.GET("/:ciudad", stockH.ListarCiudad)
			stock.GET("/:ciudad/movimientos", stockH.ListarMovimientos)
			stock.GET("/:ciudad/:sku", stockH.ObtenerCelda)
		}
		v1.POST("/stock/:ciudad/:sku/ajustar", middleware.RequireRole("supervisor", "administrador"), stockH.Ajustar)

		// Catalog: everyone reads, administrador writes
		v1.GET("/productos", middleware.RequireRole("vendedor", "supervisor", "administrador"), productosH.Listar)
		v1.GET("/productos/sku/:sku", middleware.RequireRole("vendedor", "supervisor", "administrador"), productosH.ObtenerPorSku)
		prods := v1.Group("/productos", middleware.RequireRole("administrador"))
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Eliminar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
