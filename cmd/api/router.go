package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crucial707/meddevice/internal/config"
	"github.com/crucial707/meddevice/internal/handlers"
	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/scheduler"
	"github.com/crucial707/meddevice/internal/zalo"
)

// services are the long-lived components shared between the router and the background
// workers. Nil fields are built from cfg by newRouter.
type services struct {
	Logger          *slog.Logger
	Zalo            *zalo.Client
	Bot             *zalo.Bot
	Notifier        handlers.InspectionNotifier
	Tester          handlers.ReportTester
	Tunnel          handlers.TunnelInfo
	AuthLimiter     *middleware.IPRateLimiter
	PasswordLimiter *middleware.IPRateLimiter
}

func (s *services) fill(db *sql.DB, cfg config.Config) {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	loc := cfg.Location()
	subs := repo.NewSubscriberRepo(db)
	if s.Zalo == nil {
		s.Zalo = zalo.NewClient(cfg.ZaloAPIBase, "")
	}
	if s.Bot == nil {
		s.Bot = zalo.NewBot(s.Zalo, subs, s.Logger)
	}
	if s.Notifier == nil {
		s.Notifier = zalo.NewNotifier(s.Zalo, repo.NewUserRepo(db), subs, loc, s.Logger)
	}
	if s.Tester == nil {
		s.Tester = scheduler.New(repo.NewDeviceRepo(db), repo.NewStatsRepo(db), repo.NewScheduleRepo(db), s.Zalo, loc, s.Logger)
	}
	if s.AuthLimiter == nil {
		s.AuthLimiter = middleware.AuthRateLimiter()
	}
	if s.PasswordLimiter == nil {
		s.PasswordLimiter = middleware.DevicePasswordRateLimiter()
	}
}

func newRouter(db *sql.DB, cfg config.Config, svc services) http.Handler {
	svc.fill(db, cfg)
	logger := svc.Logger
	loc := cfg.Location()

	// Repositories
	userRepo := repo.NewUserRepo(db)
	deviceRepo := repo.NewDeviceRepo(db)
	inspectionRepo := repo.NewInspectionRepo(db)
	scheduleRepo := repo.NewScheduleRepo(db)
	ticketRepo := repo.NewTicketRepo(db)
	auditRepo := repo.NewAuditRepo(db)
	settings := repo.NewSysConfigRepo(db)

	// Handlers
	authHandler := &handlers.AuthHandler{
		UserRepo: userRepo,
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: time.Duration(cfg.JWTExpireHours) * time.Hour,
	}
	userHandler := &handlers.UserHandler{Repo: userRepo, AuditRepo: auditRepo}
	deviceHandler := &handlers.DeviceHandler{
		Repo:          deviceRepo,
		Audit:         auditRepo,
		Settings:      settings,
		PublicBaseURL: cfg.PublicBaseURL,
		Location:      loc,
	}
	inspectionHandler := &handlers.InspectionHandler{
		Repo:          inspectionRepo,
		Devices:       deviceRepo,
		Audit:         auditRepo,
		Settings:      settings,
		Notifier:      svc.Notifier,
		PublicBaseURL: cfg.PublicBaseURL,
		UploadsDir:    cfg.UploadsDir(),
		Location:      loc,
		Logger:        logger,
	}
	uploadHandler := &handlers.UploadHandler{Dir: cfg.UploadsDir(), Logger: logger}
	scheduleHandler := &handlers.ScheduleHandler{Repo: scheduleRepo, Audit: auditRepo, Tester: svc.Tester}
	ticketHandler := &handlers.TicketHandler{Repo: ticketRepo, Audit: auditRepo}
	departmentHandler := &handlers.DepartmentHandler{Repo: repo.NewDepartmentRepo(db), Audit: auditRepo}
	categoryHandler := &handlers.CategoryHandler{Repo: repo.NewCategoryRepo(db), Audit: auditRepo}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}
	configHandler := &handlers.ConfigHandler{Settings: settings, Users: userRepo, Tunnel: svc.Tunnel}
	statsHandler := &handlers.StatsHandler{
		Stats:       repo.NewStatsRepo(db),
		Devices:     deviceRepo,
		Inspections: inspectionRepo,
		Location:    loc,
		Logger:      logger,
	}
	zaloHandler := &handlers.ZaloHandler{
		Client:      svc.Zalo,
		Bot:         svc.Bot,
		Subscribers: repo.NewSubscriberRepo(db),
		Settings:    settings,
		Logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes, middleware.MaxUploadBytes))

	// Probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir()))))

	// Public
	r.With(svc.AuthLimiter.Middleware).Post("/auth/login", authHandler.Login)
	r.Get("/setup/status", configHandler.SetupStatus)
	r.With(svc.AuthLimiter.Middleware).Post("/setup/admin", configHandler.SetupAdmin)
	r.Get("/tunnel/info", configHandler.TunnelInfo)
	r.Post("/zalo/webhook", zaloHandler.Webhook)
	r.With(svc.PasswordLimiter.Middleware).Post("/devices/{id}/verify-password", deviceHandler.VerifyPassword)

	adminOnly := middleware.RequireRole(models.RoleAdmin)
	deviceWriters := middleware.RequireRole(models.RoleAdmin, models.RoleInspector)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware([]byte(cfg.JWTSecret)))

		r.Get("/auth/me", authHandler.Me)

		// Flat paths: /devices/{id}/verify-password is registered on the public tree.
		r.Get("/devices", deviceHandler.ListDevices)
		r.Get("/devices/due", deviceHandler.DueDevices)
		r.Get("/devices/{id}", deviceHandler.GetDevice)
		r.Get("/devices/{id}/qrcode", deviceHandler.QRCode)
		r.With(deviceWriters).Post("/devices", deviceHandler.CreateDevice)
		r.With(deviceWriters).Put("/devices/{id}", deviceHandler.UpdateDevice)
		r.With(adminOnly).Delete("/devices/{id}", deviceHandler.DeleteDevice)

		r.Route("/inspections", func(r chi.Router) {
			r.Get("/", inspectionHandler.ListInspections)
			r.Post("/", inspectionHandler.CreateInspection)
			r.With(adminOnly).Delete("/{id}", inspectionHandler.DeleteInspection)
		})
		r.Post("/uploads", uploadHandler.UploadImage)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", ticketHandler.ListTickets)
			r.Post("/", ticketHandler.CreateTicket)
			r.Get("/{id}", ticketHandler.GetTicket)
			r.Put("/{id}", ticketHandler.UpdateTicket)
			r.With(adminOnly).Delete("/{id}", ticketHandler.DeleteTicket)
			r.Post("/{id}/claim", ticketHandler.ClaimTicket)
			r.Get("/{id}/replies", ticketHandler.ListReplies)
			r.Post("/{id}/replies", ticketHandler.AddReply)
		})

		r.Get("/departments", departmentHandler.ListDepartments)
		r.Get("/categories", categoryHandler.ListCategories)
		r.Get("/statistics", statsHandler.Statistics)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Post("/departments", departmentHandler.CreateDepartment)
			r.Put("/departments/{id}", departmentHandler.UpdateDepartment)
			r.Delete("/departments/{id}", departmentHandler.DeleteDepartment)
			r.Post("/categories", categoryHandler.CreateCategory)
			r.Put("/categories/{id}", categoryHandler.UpdateCategory)
			r.Delete("/categories/{id}", categoryHandler.DeleteCategory)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Post("/", userHandler.CreateUser)
				r.Get("/{id}", userHandler.GetUser)
				r.Put("/{id}", userHandler.UpdateUser)
				r.Delete("/{id}", userHandler.DeleteUser)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.ListSchedules)
				r.Post("/", scheduleHandler.CreateSchedule)
				r.Get("/{id}", scheduleHandler.GetSchedule)
				r.Put("/{id}", scheduleHandler.UpdateSchedule)
				r.Delete("/{id}", scheduleHandler.DeleteSchedule)
				r.Post("/{id}/test", scheduleHandler.TestSchedule)
			})

			r.Get("/config", configHandler.GetConfig)
			r.Post("/config", configHandler.SaveConfig)

			r.Post("/zalo/subscribe", zaloHandler.Subscribe)
			r.Get("/zalo/subscribers", zaloHandler.ListSubscribers)
			r.Get("/zalo/status", zaloHandler.Status)
			r.Post("/zalo/token", zaloHandler.SetToken)
			r.Post("/zalo/disconnect", zaloHandler.Disconnect)

			r.Get("/export/devices", statsHandler.ExportDevices)
			r.Get("/export/inspections", statsHandler.ExportInspections)
			r.Get("/audit", auditHandler.ListAudit)
		})
	})

	return r
}
