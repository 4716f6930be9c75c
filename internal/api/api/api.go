package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventide/cmd/middleware"
	"eventide/internal/api/handler"
	"eventide/internal/metrics"
)

type Routers struct {
	Handler *handler.Handler
	Tokens  middleware.TokenParser
	Log     *zerolog.Logger
	// Mode is the gin mode, "release" unless debugging.
	Mode string
	// FilesRoot is served under FilesURL when both are set.
	FilesRoot string
	FilesURL  string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	app := ginext.New(mode)
	app.MaxMultipartMemory = 16 << 20

	app.Use(gin.Recovery())
	app.Use(middleware.LoggingMiddleware(r.Log))
	app.Use(middleware.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	h := r.Handler
	app.GET("/healthz", h.Healthz)
	app.GET("/metrics", gin.WrapH(metrics.Handler()))
	if r.FilesRoot != "" && r.FilesURL != "" {
		files := app.Group(r.FilesURL, middleware.StoredFileHeaders(r.FilesURL))
		files.Static("/", r.FilesRoot)
	}

	v1 := app.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", h.Signup)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/google", h.GoogleLogin)

	public := v1.Group("", middleware.OptionalAuth(r.Tokens))
	public.GET("/events", h.ListEvents)
	public.GET("/events/:id", h.GetEvent)

	private := v1.Group("", middleware.RequireAuth(r.Tokens))
	private.POST("/events", h.CreateEvent)
	private.GET("/events/managed", h.ListManagedEvents)
	private.PUT("/events/:id", h.UpdateEvent)
	private.PATCH("/events/:id/status", h.UpdateEventStatus)
	private.POST("/events/:id/image", h.AttachImage)
	private.POST("/events/:id/brochure", h.AttachBrochure)
	private.POST("/events/:id/register", h.Register)
	private.GET("/events/:id/registrations", h.ListEventRegistrations)
	private.POST("/events/:id/checkin", h.CheckIn)
	private.GET("/events/:id/live", h.LiveFeed)
	private.PUT("/events/:id/certificate-template", h.SetCertificateTemplate)
	private.GET("/events/:id/certificate-template", h.GetCertificateTemplate)

	private.PATCH("/registrations/:id/status", h.UpdateRegistrationStatus)
	private.GET("/registrations/:id/qr", h.RegistrationQR)

	private.GET("/me", h.Me)
	private.PUT("/me/profile", h.UpdateProfile)
	private.GET("/me/registrations", h.ListMyRegistrations)

	private.GET("/users", h.ListUsers)
	private.PATCH("/users/:id/role", h.SetUserRole)

	return app
}
