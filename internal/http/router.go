package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterDeps struct {
	Users      UserService
	Carts      CartService
	Favourites FavouriteService
	Orders     OrderService
	Products   ProductService

	Tokens  TokenVerifier
	Limiter *RateLimiter
	Metrics *metrics.Collector
	// Gatherer backs /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer

	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	userHandler := NewUserHandler(deps.Users, deps.Logger)
	cartHandler := NewCartHandler(deps.Carts, deps.Logger)
	favouriteHandler := NewFavouriteHandler(deps.Favourites, deps.Logger)
	orderHandler := NewOrderHandler(deps.Orders, deps.Logger)
	productHandler := NewProductHandler(deps.Products, deps.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/signup", userHandler.SignUp)
			r.Post("/signin", userHandler.SignIn)

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(deps.Tokens))
				if deps.Limiter != nil {
					r.Use(deps.Limiter.Middleware)
				}

				r.Get("/cart", cartHandler.GetCart)
				r.Post("/cart", cartHandler.AddToCart)
				r.Patch("/cart", cartHandler.RemoveFromCart)

				r.Get("/favorite", favouriteHandler.GetFavourites)
				r.Post("/favorite", favouriteHandler.AddToFavourite)
				r.Patch("/favorite", favouriteHandler.RemoveFromFavourite)

				r.Get("/order", orderHandler.GetOrders)
				r.Post("/order", orderHandler.PlaceOrder)
			})
		})

		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{id}", productHandler.GetProduct)
	})

	return otelhttp.NewHandler(r, "storefront")
}
