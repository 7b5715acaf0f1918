package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apparel-studio/cart"
	"apparel-studio/catalog"
	"apparel-studio/checkout"
	"apparel-studio/config"
	"apparel-studio/editor"
	cartapi "apparel-studio/handlers/api/cart"
	"apparel-studio/handlers/api/designs"
	"apparel-studio/handlers/api/orders"
	"apparel-studio/handlers/api/products"
	"apparel-studio/handlers/api/studio"
	"apparel-studio/handlers/auth"
	"apparel-studio/handlers/websocket"
	authMiddleware "apparel-studio/middleware"
	"apparel-studio/metrics"
	"apparel-studio/sessions"
	"apparel-studio/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type app struct {
	cfg      *config.Config
	store    stores.Store
	catalog  *catalog.Catalog
	registry *sessions.Registry
	carts    *cart.Service
	checkout *checkout.Service
	limiter  *authMiddleware.RateLimiter
}

func setupRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(metrics.InstrumentHandler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Revision"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Handle("/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(a.limiter.Handler)
		r.Post("/register", auth.HandleRegister(a.store))
		r.Post("/login", auth.HandleLogin(a.store))
	})

	r.Route("/api", func(r chi.Router) {
		// Catalog is public so the storefront can render before sign-in.
		r.Get("/products", products.HandleListProducts(a.catalog))
		r.Get("/products/{id}", products.HandleGetProduct(a.catalog))
		r.Get("/stickers", products.HandleListStickers(a.catalog))
		r.Get("/palette", products.HandlePalette(a.catalog))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)

			r.Route("/editor/sessions", func(r chi.Router) {
				r.Post("/", studio.HandleOpenSession(a.registry, a.catalog))
				r.Route("/{sid}", func(r chi.Router) {
					r.Get("/", studio.HandleGetSession(a.registry))
					r.Delete("/", studio.HandleCloseSession(a.registry))
					r.Post("/text", studio.HandleAddText(a.registry))
					r.Post("/stickers", studio.HandleAddSticker(a.registry, a.catalog))
					r.Patch("/elements/{eid}", studio.HandleUpdateElement(a.registry))
					r.Post("/elements/{eid}/duplicate", studio.HandleDuplicateElement(a.registry))
					r.Delete("/elements/{eid}", studio.HandleRemoveElement(a.registry))
					r.Put("/selection", studio.HandleSelect(a.registry))
					r.Put("/color", studio.HandleSetColor(a.registry))
					r.Put("/grid", studio.HandleSetGrid(a.registry))
					r.Put("/background", studio.HandleSetBackground(a.registry))
					r.Delete("/background", studio.HandleClearBackground(a.registry))
					r.Get("/preview.png", studio.HandlePreview(a.registry))
					r.Post("/save", studio.HandleSave(a.registry, a.store, a.carts))
				})
			})

			r.Route("/designs", func(r chi.Router) {
				r.Get("/", designs.HandleListDesigns(a.store))
				r.Get("/{id}", designs.HandleGetDesign(a.store))
				r.Delete("/{id}", designs.HandleDeleteDesign(a.store))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartapi.HandleGetCart(a.carts))
				r.Patch("/{itemId}", cartapi.HandleUpdateItem(a.carts))
				r.Delete("/{itemId}", cartapi.HandleRemoveItem(a.carts))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.HandleCheckout(a.checkout))
				r.Get("/", orders.HandleListOrders(a.store))
				r.Get("/{id}", orders.HandleGetOrder(a.store))
			})
		})
	})

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server, a *app, stop chan struct{}) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down...")

	close(stop)
	a.registry.Stop()
	ioo.Close(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
}

func main() {
	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	auth.InitAuth(cfg.JWTSecret)
	store := stores.GetStore(cfg)
	if err := auth.SeedDemoUser(context.Background(), store); err != nil {
		logrus.WithError(err).Warn("Failed to seed demo user")
	}

	renderer, err := editor.NewRenderer()
	if err != nil {
		logrus.Fatalf("Failed to load editor fonts: %v", err)
	}
	registry := sessions.NewRegistry(renderer, cfg.SessionIdleTimeout)
	if err := registry.StartReaper(cfg.SessionReapSchedule); err != nil {
		logrus.Fatalf("Invalid SESSION_REAP_SCHEDULE: %v", err)
	}

	carts := cart.NewService()
	a := &app{
		cfg:      cfg,
		store:    store,
		catalog:  catalog.Default(),
		registry: registry,
		carts:    carts,
		checkout: checkout.NewService(carts, store,
			checkout.WithShippingCost(cfg.ShippingCost),
			checkout.WithPaymentDelay(cfg.PaymentDelay),
		),
		limiter: authMiddleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
	}
	stop := make(chan struct{})
	a.limiter.StartCleanup(time.Minute, 10*time.Minute, stop)

	r := setupRouter(a)

	ioo, _ := websocket.SetupSocketIO(registry)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo, a, stop)
}
