package main

import (
	"strings"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/controllers"
	"bominventory-backend/repository"
	"bominventory-backend/routes"
	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// appDeps зависимости HTTP-приложения
type appDeps struct {
	DB       *gorm.DB
	Config   *config.Config
	Locker   services.Locker
	Hub      *services.DashboardHub
	Registry *prometheus.Registry
	Logger   *logrus.Logger
	// AccessLog включает журнал запросов fiber
	AccessLog bool
}

// buildApp собирает Fiber приложение со всеми маршрутами
func buildApp(deps appDeps) *fiber.App {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = config.GetLogger()
	}

	// Хаб не обязателен: без него события никуда не отправляются
	var notifier services.Notifier
	if deps.Hub != nil {
		notifier = deps.Hub
	}

	cfg := deps.Config
	store := repository.NewGormStore(deps.DB)
	metrics := services.NewMetrics(deps.Registry)

	engine := services.NewReconciliationService(store, deps.Locker, notifier, metrics, deps.Logger)
	catalog := services.NewCatalogService(store, notifier, cfg.FleetSize, cfg.LowStockTrains, deps.Logger)
	divisions := services.NewDivisionService(store, deps.Logger)
	defects := services.NewDefectService(store)
	reports := services.NewReportService(store, cfg.LowStockTrains)
	exports := services.NewExportService(reports)
	imports := services.NewImportService(catalog, engine, store, notifier, metrics, deps.Logger)

	// Создание Fiber приложения
	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
				"code":    code,
			})
		},
	})

	// Middleware
	if deps.AccessLog {
		app.Use(logger.New())
	}
	// cors запрещает credentials вместе с "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: strings.TrimSpace(cfg.CORSOrigins) != "*",
	}))

	// Настройка маршрутов
	routes.SetupAuthRoutes(app, controllers.NewAuthController(deps.DB))
	routes.SetupPartRoutes(app, controllers.NewPartController(catalog))
	routes.SetupStockRoutes(app, controllers.NewStockController(engine, reports))
	routes.SetupDivisionRoutes(app, controllers.NewDivisionController(divisions, engine))
	routes.SetupDefectRoutes(app, controllers.NewDefectController(defects))
	routes.SetupReportRoutes(app, controllers.NewReportController(reports, exports))
	routes.SetupImportRoutes(app, controllers.NewImportController(imports))

	// WebSocket маршрут живого дашборда; токен передается в ?token=
	if deps.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/dashboard", websocket.New(deps.Hub.HandleWebSocket))
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	// Общий health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "ok", fiber.StatusOK
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			status, code = "database unavailable", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"success":   err == nil,
			"status":    status,
			"message":   "BOM inventory backend",
			"timestamp": time.Now().Unix(),
		})
	})

	return app
}
