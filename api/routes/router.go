package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solshop/solshop-backend/api/controllers"
	webhookcontrollers "github.com/solshop/solshop-backend/api/controllers/webhooks"
	"github.com/solshop/solshop-backend/api/middleware"
	"github.com/solshop/solshop-backend/internal/checkout"
	"github.com/solshop/solshop-backend/internal/fees"
	"github.com/solshop/solshop-backend/internal/ledger"
	"github.com/solshop/solshop-backend/internal/notifications"
	"github.com/solshop/solshop-backend/internal/storefronts"
	heliuswebhook "github.com/solshop/solshop-backend/internal/webhooks/helius"
	"github.com/solshop/solshop-backend/pkg/config"
	"github.com/solshop/solshop-backend/pkg/logger"
	"github.com/solshop/solshop-backend/pkg/metrics"
	solanaclient "github.com/solshop/solshop-backend/pkg/solana"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	chainClient *solanaclient.Client,
	calc fees.Calculator,
	checkoutService checkout.Service,
	led *ledger.Ledger,
	storefrontService storefronts.Service,
	notificationService notifications.Service,
	heliusService heliuswebhook.Service,
	paymentMetrics *metrics.PaymentMetrics,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, chainClient, logg))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/helius", webhookcontrollers.HeliusWebhook(heliusService, cfg.Webhook.Secret, paymentMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pay/{slug}/{productId}", func(r chi.Router) {
			r.Get("/", controllers.TransactionRequestMetadata(checkoutService, logg))
			r.Post("/", controllers.CreateTransactionRequest(checkoutService, logg))
		})

		r.Get("/fees", controllers.FeeSchedule(calc, logg))
		r.Get("/payments/{reference}", controllers.GetPayment(led, logg))

		r.Route("/storefronts/{slug}", func(r chi.Router) {
			r.Get("/payments", controllers.ListStorefrontPayments(led, storefrontService, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationService, logg))
				r.Post("/{id}/read", controllers.MarkNotificationRead(notificationService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
			})
		})
	})

	return r
}
