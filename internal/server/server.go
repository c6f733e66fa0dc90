package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/internal/tracker"
)

type Server struct {
	cfg           *config.Config
	store         storage.Store
	tracker       *tracker.Service
	loc           *time.Location
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
}

type AuthProvider struct {
	name       string
	oauth2     *oauth2.Config
	oidcProv   *oidc.Provider
	idVerifier *oidc.IDTokenVerifier
	state      *StateStore
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		store:   store,
		tracker: tracker.New(store, cfg.LookbackDays),
		loc:     cfg.Location(),
	}

	if cfg.AuthEnabled {
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	}
	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/version", s.getVersionInfo)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.simpleLogin)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)
			r.Get("/token", s.getAPIToken)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
				r.Delete("/api_keys/{hash}", s.deleteAPIKey)
			})
		})
	}

	r.Group(func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
		}
		r.Use(s.userAwareMetricsMiddleware)

		r.Route("/habits", func(r chi.Router) {
			r.Post("/", s.createHabit)
			r.Get("/", s.listHabits)
			r.Get("/{habit_id}", s.getHabit)
			r.Put("/{habit_id}", s.updateHabit)
			r.Delete("/{habit_id}", s.deleteHabit)
			r.Get("/{habit_id}/summary", s.getHabitSummary)
			r.Get("/{habit_id}/progress", s.listHabitProgress)
			r.Put("/{habit_id}/progress/{day}", s.putHabitProgress)
			r.Patch("/{habit_id}/complete", s.completeHabit)
			r.Get("/{habit_id}/stats", s.getHabitStats)
		})
		r.Get("/snapshots", s.getSnapshots)
		r.Get("/progress", s.getDailyProgress)
		r.Get("/mood", s.listMoods)
		r.Post("/mood", s.recordMood)
		r.Get("/mood/stats", s.getMoodStats)
	})

	logger.Debug("Router configured", "auth_enabled", s.cfg.AuthEnabled, "providers", len(s.authProviders))
	return r
}
