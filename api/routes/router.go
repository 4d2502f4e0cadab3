package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/combinewear/wardrobe-backend/api/controllers"
	"github.com/combinewear/wardrobe-backend/api/middleware"
	"github.com/combinewear/wardrobe-backend/internal/auth"
	"github.com/combinewear/wardrobe-backend/internal/importantdays"
	"github.com/combinewear/wardrobe-backend/internal/media"
	"github.com/combinewear/wardrobe-backend/internal/outfits"
	"github.com/combinewear/wardrobe-backend/internal/users"
	"github.com/combinewear/wardrobe-backend/internal/wardrobe"
	"github.com/combinewear/wardrobe-backend/pkg/auth/session"
	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/db"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
	"github.com/combinewear/wardrobe-backend/pkg/redis"
	"github.com/combinewear/wardrobe-backend/pkg/storage/gcs"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	GCS            gcs.Pinger
	SessionManager session.AccessSessionChecker
	Metrics        *prometheus.Registry

	AuthService         auth.Service
	UserService         users.Service
	WardrobeService     wardrobe.Service
	OutfitService       outfits.Service
	MediaService        media.Service
	ImportantDayService importantdays.Service
	Weather             controllers.WeatherProvider
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.GCS))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signupPolicy, p.Redis, logg)).Post("/signup", controllers.AuthSignup(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/forgot-password", controllers.AuthForgotPassword(p.AuthService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/auth/logout", controllers.AuthLogout(p.AuthService, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(p.UserService, logg))
			r.Patch("/", controllers.UserUpdateProfile(p.UserService, logg))
			r.Put("/preferences", controllers.UserUpdatePreferences(p.UserService, logg))
			r.Put("/profile-image", controllers.UserSetProfileImage(p.UserService, p.MediaService, logg))
			r.Post("/change-password", controllers.UserChangePassword(p.UserService, logg))
			r.Delete("/", controllers.UserDeleteAccount(p.UserService, logg))
		})

		r.Route("/clothes", func(r chi.Router) {
			r.Get("/", controllers.ClothesList(p.WardrobeService, logg))
			r.Post("/", controllers.ClothesCreate(p.WardrobeService, p.MediaService, logg))
			r.Post("/analyze", controllers.ClothesAnalyze(p.WardrobeService, logg))
			r.Get("/stats", controllers.ClothesStats(p.WardrobeService, logg))
			r.Get("/{itemId}", controllers.ClothesDetail(p.WardrobeService, logg))
			r.Patch("/{itemId}", controllers.ClothesUpdate(p.WardrobeService, logg))
			r.Delete("/{itemId}", controllers.ClothesDelete(p.WardrobeService, logg))
		})

		r.Route("/outfits", func(r chi.Router) {
			r.Get("/", controllers.OutfitsList(p.OutfitService, logg))
			r.Post("/", controllers.OutfitsCreate(p.OutfitService, logg))
			r.Post("/generate", controllers.OutfitsGenerate(p.OutfitService, logg))
			r.Delete("/disliked", controllers.OutfitsDeleteDisliked(p.OutfitService, logg))
			r.Patch("/{outfitId}/status", controllers.OutfitsUpdateStatus(p.OutfitService, logg))
			r.Delete("/{outfitId}", controllers.OutfitsDelete(p.OutfitService, logg))
		})

		r.Route("/important-days", func(r chi.Router) {
			r.Get("/", controllers.ImportantDaysList(p.ImportantDayService, logg))
			r.Post("/", controllers.ImportantDaysCreate(p.ImportantDayService, logg))
			r.Patch("/{dayId}", controllers.ImportantDaysUpdate(p.ImportantDayService, logg))
			r.Delete("/{dayId}", controllers.ImportantDaysDelete(p.ImportantDayService, logg))
		})

		r.Get("/weather", controllers.WeatherCurrent(p.Weather, logg))
	})

	return r
}
