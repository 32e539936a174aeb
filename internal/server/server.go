// Package server assembles the HTTP surface of the buffet service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/auth"
	catH "github.com/fekuna/buffet-service/internal/category/handler"
	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/model"
	orderH "github.com/fekuna/buffet-service/internal/order/handler"
	prodH "github.com/fekuna/buffet-service/internal/product/handler"
	reportH "github.com/fekuna/buffet-service/internal/report/handler"
	uploadH "github.com/fekuna/buffet-service/internal/upload/handler"
	userH "github.com/fekuna/buffet-service/internal/user/handler"
	"github.com/fekuna/buffet-service/pkg/i18n"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Users      *userH.UserHandler
	Categories *catH.CategoryHandler
	Products   *prodH.ProductHandler
	Orders     *orderH.OrderHandler
	Reports    *reportH.ReportHandler
	Uploads    *uploadH.UploadHandler
}

type Config struct {
	Address        string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Production     bool
	UploadDir      string
	UploadBaseURL  string
}

// Deps are the collaborators the router needs besides the handlers.
type Deps struct {
	Auth       *auth.Authenticator
	Translator *i18n.Translator
	DB         Pinger
	Logger     logger.ZapLogger
}

func New(cfg Config, deps Deps, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           NewRouter(cfg, deps, h),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func NewRouter(cfg Config, deps Deps, h Handlers) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = "/uploads"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(httpx.Middleware(deps.Translator, cfg.Production, deps.Logger))
	r.Use(recoverer(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, apperror.NotFound("route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, apperror.NotFound("route"))
	})

	r.Get("/healthz", health(deps.DB))

	if cfg.UploadDir != "" {
		prefix := cfg.UploadBaseURL + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDir))))
	}

	authed := func(r chi.Router) chi.Router {
		return r.With(deps.Auth.Middleware, tagUser)
	}
	anyone := auth.Require(model.RoleUser, model.RoleAdmin)
	admin := auth.Require(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Users.Register)
			r.Post("/login", h.Users.Login)
			authed(r).With(anyone).Get("/verify", h.Users.Verify)
			authed(r).With(anyone).Put("/change-password", h.Users.ChangePassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Middleware, tagUser, anyone)
				r.Get("/profile", h.Users.GetProfile)
				r.Put("/profile", h.Users.UpdateProfile)
			})
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Middleware, tagUser, admin)
				r.Get("/", h.Users.ListUsers)
				r.Post("/", h.Users.CreateUser)
				r.Get("/stats", h.Users.Stats)
				r.Post("/promote", h.Users.Promote)
				r.Get("/{id}", h.Users.GetUser)
				r.Put("/{id}", h.Users.UpdateUser)
				r.Put("/{id}/role", h.Users.UpdateRole)
				r.Delete("/{id}", h.Users.DeleteUser)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.ListActive)
			authed(r).With(admin).Get("/all", h.Categories.ListAll)
			r.Get("/{id}", h.Categories.GetCategory)
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Middleware, tagUser, admin)
				r.Post("/", h.Categories.CreateCategory)
				r.Put("/{id}", h.Categories.UpdateCategory)
				r.Delete("/{id}", h.Categories.DeleteCategory)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.ListProducts)
			r.Get("/category/{ref}", h.Products.ListByCategory)
			r.Get("/{id}", h.Products.GetProduct)
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Middleware, tagUser, admin)
				r.Post("/", h.Products.CreateProduct)
				r.Put("/{id}", h.Products.UpdateProduct)
				r.Delete("/{id}", h.Products.DeleteProduct)
			})
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/products", h.Products.Search)
			r.Get("/quick", h.Products.QuickSearch)
			r.Get("/suggestions", h.Products.Suggestions)
			r.Get("/filters", h.Products.SearchFilters)
		})

		authed(r).With(anyone).Post("/cart/validate", h.Orders.ValidateCart)

		r.Route("/orders", func(r chi.Router) {
			r.Use(deps.Auth.Middleware, tagUser)
			r.Group(func(r chi.Router) {
				r.Use(anyone)
				r.Post("/", h.Orders.CreateOrder)
				r.Get("/my", h.Orders.ListMyOrders)
				r.Get("/my/stats", h.Orders.MyStats)
				r.Get("/{id}", h.Orders.GetOrder)
				r.Put("/{id}/cancel", h.Orders.CancelOrder)
			})
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.Orders.ListOrders)
				r.Get("/stats", h.Orders.Stats)
				r.Put("/{id}/status", h.Orders.UpdateStatus)
				r.Delete("/{id}", h.Orders.DeleteOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.Auth.Middleware, tagUser, admin)
			r.Get("/dashboard", h.Reports.Dashboard)
			r.Get("/stats/advanced", h.Reports.AdvancedStats)
			r.Get("/stats/orders", h.Orders.Stats)
			r.Get("/recent-orders", h.Reports.RecentOrders)
			r.Get("/users", h.Users.ListUsers)
			r.Get("/users/{id}", h.Users.GetUser)
			r.Put("/users/{id}/role", h.Users.UpdateRole)
			r.Delete("/users/{id}", h.Users.DeleteUser)
			r.Get("/products", h.Products.ListAllProducts)
		})

		r.Route("/upload", func(r chi.Router) {
			r.Get("/info/{filename}", h.Uploads.FileInfo)
			authed(r).With(anyone).Post("/avatar", h.Uploads.Avatar)
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Middleware, tagUser, admin)
				r.Post("/product-image", h.Uploads.ProductImage)
				r.Delete("/{filename}", h.Uploads.DeleteFile)
			})
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.Error(w, r, apperror.Transient(err))
				return
			}
		}
		httpx.Success(w, r, http.StatusOK, "ok", map[string]string{"status": "up"})
	}
}
