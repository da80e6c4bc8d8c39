package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditohabitacao/leads-api/internal/config"
	"github.com/creditohabitacao/leads-api/internal/evo"
	"github.com/creditohabitacao/leads-api/internal/faq"
	"github.com/creditohabitacao/leads-api/internal/gestora"
	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/mail"
	"github.com/creditohabitacao/leads-api/internal/session"
	"github.com/creditohabitacao/leads-api/internal/storage"
)

// Handler agrega as dependências dos handlers HTTP.
type Handler struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	leads    *lead.Service
	gestoras *gestora.Service
	faqs     *faq.Service
	sessions *session.Store
	storage  *storage.Store
	evo      *evo.Client
	mailer   *mail.Sender

	publicLimiter    *httpmiddleware.RateLimiter
	dashboardLimiter *httpmiddleware.RateLimiter
	devCookies       bool
}

// Deps são as dependências necessárias para montar o router.
type Deps struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Leads    *lead.Service
	Gestoras *gestora.Service
	FAQ      *faq.Service
	Sessions *session.Store
	Storage  *storage.Store
	Evo      *evo.Client
	Mailer   *mail.Sender
}

// NewRouter devolve o router configurado com todas as rotas.
func NewRouter(d Deps) http.Handler {
	devCookies := false
	for _, origin := range d.Config.AllowOrigins {
		if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
			devCookies = true
			break
		}
	}

	h := &Handler{
		cfg:              d.Config,
		pool:             d.Pool,
		leads:            d.Leads,
		gestoras:         d.Gestoras,
		faqs:             d.FAQ,
		sessions:         d.Sessions,
		storage:          d.Storage,
		evo:              d.Evo,
		mailer:           d.Mailer,
		publicLimiter:    httpmiddleware.NewRateLimiter(d.Config.RateLimitPublic.RequestsPerSecond, d.Config.RateLimitPublic.Burst),
		dashboardLimiter: httpmiddleware.NewRateLimiter(d.Config.RateLimitDashboard.RequestsPerSecond, d.Config.RateLimitDashboard.Burst),
		devCookies:       devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(d.Config.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Get("/upload/{leadID}", h.UploadPage)
		public.Get("/faq-audio/{filename}", h.ServeFAQAudio)

		public.Route("/api/leads", func(r chi.Router) {
			r.Get("/", h.ListLeadsEscalados)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/status", h.LeadStatus)
				r.Get("/rgpd", h.LeadRGPD)
				r.Get("/foto-gestora", h.LeadFotoGestora)
				r.Post("/request-verification", h.RequestVerification)
				r.Post("/confirm-email", h.ConfirmEmail)
				r.Post("/no-code", h.NoCode)
				r.Post("/access", h.VerifyAccess)
				r.Post("/sem-docs", h.SemDocs)
				r.Get("/documents", h.ListDocuments)
				r.Post("/documents", h.UploadDocument)
				r.Patch("/", h.UpdateLeadDados)
				r.Post("/send-email", h.SendDocuments)
			})
		})

		public.Route("/api/faq", func(r chi.Router) {
			r.Get("/perguntas", h.ListPerguntasPublic)
			r.Get("/perguntas/{id}", h.GetPerguntaPublic)
			r.Post("/perguntas/{id}/incrementar-frequencia", h.IncrementarFrequencia)
			r.Get("/duvidas-pendentes-textos", h.DuvidasPendentesTextos)
			r.Post("/duvidas-pendentes", h.RegistarDuvida)
		})

		public.Get("/api/internal/faq-audio/{perguntaID}/{gestoraID}", h.InternalFAQAudio)

		public.Route("/api/dashboard", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.sessions))
		private.Use(httpmiddleware.SessionRateLimit(h.dashboardLimiter))

		private.Route("/api/dashboard", func(r chi.Router) {
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)

			r.Get("/leads", h.DashboardListLeads)
			r.Get("/leads/rafa", h.DashboardLeadsRafa)
			r.Get("/leads/rafa/count", h.DashboardLeadsRafaCount)
			r.Patch("/leads/{id}", h.DashboardUpdateLead)
			r.With(httpmiddleware.RequireAdmin).Delete("/leads/{id}", h.DashboardDeleteLead)

			r.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAdmin)
				admin.Get("/gestoras", h.ListGestoras)
				admin.Post("/gestoras", h.CreateGestora)
				admin.Patch("/gestoras/{id}", h.UpdateGestora)
				admin.Delete("/gestoras/{id}", h.DeleteGestora)
				admin.Post("/impersonate", h.Impersonate)
			})
			r.Post("/impersonate/stop", h.StopImpersonate)

			r.Group(func(g chi.Router) {
				g.Use(httpmiddleware.RequireGestora)
				g.Get("/profile", h.GetProfile)
				g.Post("/profile", h.UpdateProfile)
				g.Get("/profile/rgpd", h.GetProfileRGPD)
			})

			r.Route("/perguntas", func(r chi.Router) {
				r.Get("/", h.DashboardListPerguntas)
				r.Get("/{id}", h.DashboardGetPergunta)
				r.With(httpmiddleware.RequireAdmin).Post("/", h.DashboardCreatePergunta)
				r.With(httpmiddleware.RequireAdmin).Patch("/{id}", h.DashboardUpdatePergunta)
				r.With(httpmiddleware.RequireAdmin).Delete("/{id}", h.DashboardDeletePergunta)
				r.With(httpmiddleware.RequireGestora).Post("/{id}/respostas", h.AnswerPergunta)
				r.With(httpmiddleware.RequireGestora).Post("/{id}/minha-resposta-audio", h.AnswerPerguntaAudio)
				r.With(httpmiddleware.RequireGestora).Delete("/{id}/minha-resposta", h.DeleteMinhaResposta)
			})

			r.With(httpmiddleware.RequireGestora).Get("/faq-audio/{perguntaID}", h.DashboardFAQAudio)
			r.With(httpmiddleware.RequireAdmin).Get("/faq-audio-admin/{perguntaID}", h.DashboardFAQAudioAdmin)

			r.Route("/duvidas-pendentes", func(r chi.Router) {
				r.Get("/", h.ListDuvidasPendentes)
				r.Get("/count", h.CountDuvidasPendentes)
				r.Post("/", h.CreateDuvida)
				r.Patch("/{id}", h.UpdateDuvida)
				r.With(httpmiddleware.RequireAdmin).Delete("/{id}", h.DeleteDuvida)
				r.With(httpmiddleware.RequireGestora).Post("/{id}/responder", h.ResponderDuvida)
			})
		})
	})

	return r
}
