package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/electromart/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Payment  *PaymentHandler
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Admin    *AdminHandler
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	AdminToken         string
	Logger             *slog.Logger
}

func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(MockAuthMiddleware)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(LoggerMiddleware(cfg.Logger))

		r.Get("/ping", h.Payment.Ping)
		r.Get("/demo", h.Payment.Demo)
		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-order", h.Payment.CreateOrder)
			r.Post("/verify-payment", h.Payment.VerifyPayment)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.List)
				r.Get("/{product_id}", h.Products.Get)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})
			r.Delete("/session", h.Cart.EndSession)
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", h.Checkout.InitiateCheckout)
				r.Post("/{checkout_id}/confirm", h.Checkout.Confirm)
				r.Post("/{checkout_id}/cancel", h.Checkout.Cancel)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListOrders)
				r.Get("/{order_id}", h.Orders.GetOrder)
				r.Get("/{order_id}/tracking", h.Orders.Tracking)
				r.Get("/{order_id}/invoice", h.Orders.Invoice)
			})
			r.Route("/admin", func(r chi.Router) {
				r.Use(AdminOnly(cfg.AdminToken))
				r.Get("/orders", h.Admin.ListOrders)
				r.Patch("/orders/{order_id}/status", h.Admin.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
