// Package mockapi serves the clinic REST API from memory for local runs and
// tests.
package mockapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-admin/config"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

// APIPrefix is where the REST routes are mounted.
const APIPrefix = "/api"

// Options carries the collaborators of the server. Zero values get defaults.
type Options struct {
	Store    *Store
	Hasher   PasswordHasher
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

type Server struct {
	cfg      config.MockAPIConfig
	store    *Store
	hasher   PasswordHasher
	tokens   *TokenIssuer
	auth     *AuthMiddleware
	validate *validator.Validate
	log      *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

func NewServer(cfg config.MockAPIConfig, opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Hasher == nil {
		opts.Hasher = NewBcryptHasher(0)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if opts.Now != nil {
		opts.Store.now = opts.Now
		tokens.now = opts.Now
	}

	s := &Server{
		cfg:      cfg,
		store:    opts.Store,
		hasher:   opts.Hasher,
		tokens:   tokens,
		auth:     NewAuthMiddleware(tokens, opts.Store),
		validate: validator.New(),
		log:      opts.Logger.With("component", "mockapi"),
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
	}
	s.engine = s.setupRouter()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Store() *Store { return s.store }

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(s.log), Recovery(s.log), Metrics(s.metrics))

	r.GET("/health", s.health)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/static/:name", s.serveImage)

	api := r.Group(APIPrefix)
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		api.Use(RateLimit(rate.Limit(s.cfg.RateLimit), burst))
	}

	api.POST("/login", s.login)
	api.POST("/logout", s.logout)

	authed := api.Group("")
	authed.Use(s.auth.Authenticate())
	authed.GET("/userData", s.userData)

	need := s.auth.RequirePermission

	doctors := authed.Group("/doctors")
	{
		doctors.GET("", s.listDoctors)
		doctors.GET("/:id", s.getDoctor)
		doctors.POST("", need(rbac.CreateDoctor), s.createDoctor)
		doctors.PUT("/:id", s.updateDoctor)
		doctors.DELETE("/:id", need(rbac.DeleteDoctor), s.deleteDoctor)
	}

	patients := authed.Group("/patients")
	{
		patients.GET("", need(rbac.ReadPatient), s.listPatients)
		patients.GET("/:id", need(rbac.ReadPatient), s.getPatient)
		patients.POST("", need(rbac.CreatePatient), s.createPatient)
		patients.PUT("/:id", need(rbac.UpdatePatient), s.updatePatient)
		patients.DELETE("/:id", need(rbac.DeletePatient), s.deletePatient)
		patients.GET("/:id/medicines", need(rbac.ReadPatient), s.listMedicines)
		patients.PUT("/:id/medicines", need(rbac.UpdatePatient), s.saveMedicines)
		patients.GET("/:id/vaccines", need(rbac.ReadPatient), s.listVaccines)
		patients.PUT("/:id/vaccines", need(rbac.UpdatePatient), s.saveVaccines)
	}

	appointments := authed.Group("/appointments")
	{
		appointments.GET("", need(rbac.ReadAppointment), s.listAppointments)
		appointments.GET("/:id", need(rbac.ReadAppointment), s.getAppointment)
		appointments.POST("", need(rbac.CreateAppointment), s.createAppointment)
		appointments.PUT("/:id", need(rbac.UpdateAppointment), s.updateAppointment)
		appointments.DELETE("/:id", need(rbac.DeleteAppointment), s.deleteAppointment)
	}

	questions := authed.Group("/questions")
	{
		questions.GET("", need(rbac.ReadQuestion), s.listQuestions)
		questions.GET("/:id", need(rbac.ReadQuestion), s.getQuestion)
		questions.POST("/:id/answer", need(rbac.AnswerQuestion), s.answerQuestion)
		questions.DELETE("/:id", need(rbac.DeleteQuestion), s.deleteQuestion)
	}

	contents := authed.Group("/contents")
	{
		contents.GET("", need(rbac.ReadContent), s.listContents)
		contents.GET("/:id", need(rbac.ReadContent), s.getContent)
		contents.POST("", need(rbac.CreateContent), s.createContent)
		contents.PUT("/:id", need(rbac.UpdateContent), s.updateContent)
		contents.DELETE("/:id", need(rbac.DeleteContent), s.deleteContent)
	}

	authed.POST("/images", need(rbac.UploadImage), s.uploadImage)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
