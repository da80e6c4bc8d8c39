package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/gestora"
	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
	"github.com/creditohabitacao/leads-api/internal/mail"
	"github.com/creditohabitacao/leads-api/internal/session"
	"github.com/creditohabitacao/leads-api/internal/util"
)

func (h *Handler) setSessionCookie(w http.ResponseWriter, sid string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login autentica o admin (credenciais de ambiente) ou uma gestora
// (palavra-passe na base de dados) e abre a sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	email := util.NormalizeEmail(payload.Email)
	if email == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e password obrigatórios", nil)
		return
	}

	if h.cfg.AdminEmail != "" && email == h.cfg.AdminEmail {
		if payload.Password != h.cfg.AdminPassword {
			WriteError(w, http.StatusUnauthorized, "AUTH", "email ou palavra-passe incorretos", nil)
			return
		}
		h.openSession(w, r, session.Session{Identity: session.Identity{
			Role:  session.RoleAdmin,
			Email: email,
			Nome:  "Administração",
		}})
		return
	}

	g, err := h.gestoras.Authenticate(r.Context(), email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, gestora.ErrInvalidCredentials):
			WriteError(w, http.StatusUnauthorized, "AUTH", "email ou palavra-passe incorretos", nil)
		case errors.Is(err, gestora.ErrPasswordNotSet):
			WriteError(w, http.StatusUnauthorized, "AUTH", "conta sem palavra-passe; usa a recuperação para definir uma", nil)
		default:
			log.Error().Err(err).Msg("falha no login de gestora")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		}
		return
	}

	h.openSession(w, r, session.Session{Identity: session.Identity{
		Role:      session.RoleGestora,
		GestoraID: g.ID,
		Email:     g.Email,
		Nome:      g.Nome,
	}})
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request, sess session.Session) {
	sid, err := h.sessions.Create(r.Context(), sess)
	if err != nil {
		log.Error().Err(err).Msg("falha a criar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	h.setSessionCookie(w, sid, h.sessions.TTL())
	WriteJSON(w, http.StatusOK, sessionView(&sess))
}

func sessionView(sess *session.Session) map[string]any {
	out := map[string]any{
		"role":  sess.Role,
		"email": sess.Email,
		"nome":  sess.Nome,
	}
	if sess.GestoraID != 0 {
		out["gestora_id"] = sess.GestoraID
	}
	if sess.Impersonator != nil {
		out["impersonating"] = true
	}
	return out
}

// Logout fecha a sessão e limpa o cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := httpmiddleware.GetSessionID(r.Context()); sid != "" {
		if err := h.sessions.Delete(r.Context(), sid); err != nil {
			log.Warn().Err(err).Msg("falha a apagar sessão")
		}
	}
	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]any{"terminada": true})
}

// Me devolve a identidade da sessão atual.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	WriteJSON(w, http.StatusOK, sessionView(sess))
}

// ForgotPassword inicia a recuperação de palavra-passe de gestora. A
// resposta é a mesma para emails conhecidos e desconhecidos.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	email := util.NormalizeEmail(payload.Email)
	if err := util.ValidateEmail(email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	g, token, err := h.gestoras.StartPasswordReset(r.Context(), email)
	if err != nil {
		log.Error().Err(err).Msg("falha a iniciar recuperação de palavra-passe")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	if g != nil && token != "" {
		link := fmt.Sprintf("%s/dashboard/reset-password?token=%s", h.cfg.AppURL, token)
		if err := h.mailer.SendPasswordReset(r.Context(), g.Email, g.Nome, link); err != nil {
			if errors.Is(err, mail.ErrNotConfigured) {
				WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "envio de email indisponível", nil)
				return
			}
			log.Error().Err(err).Msg("falha a enviar email de recuperação")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"mensagem": "se o email existir, receberás um link de recuperação",
	})
}

// ResetPassword conclui a recuperação trocando o token por uma
// palavra-passe nova.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := util.ValidatePassword(payload.Password); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if err := h.gestoras.ResetPassword(r.Context(), payload.Token, payload.Password); err != nil {
		if errors.Is(err, gestora.ErrResetTokenInvalid) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		log.Error().Err(err).Msg("falha a redefinir palavra-passe")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"redefinida": true})
}

// Impersonate troca a sessão do admin pela identidade de uma gestora,
// guardando a identidade original para o regresso.
func (h *Handler) Impersonate(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	sid := httpmiddleware.GetSessionID(r.Context())

	var payload struct {
		GestoraID int64 `json:"gestora_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.GestoraID <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "gestora_id obrigatório", nil)
		return
	}

	g, err := h.gestoras.GetByID(r.Context(), payload.GestoraID)
	if err != nil {
		if errors.Is(err, gestora.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "gestora não encontrada", nil)
			return
		}
		log.Error().Err(err).Msg("falha a carregar gestora")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	original := sess.Identity
	if sess.Impersonator != nil {
		// personificação encadeada mantém o admin original
		original = *sess.Impersonator
	}

	updated := session.Session{
		Identity: session.Identity{
			Role:      session.RoleGestora,
			GestoraID: g.ID,
			Email:     g.Email,
			Nome:      g.Nome,
		},
		Impersonator: &original,
	}
	if err := h.sessions.Update(r.Context(), sid, updated); err != nil {
		log.Error().Err(err).Msg("falha a atualizar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, sessionView(&updated))
}

// StopImpersonate devolve a sessão à identidade original do admin.
func (h *Handler) StopImpersonate(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	sid := httpmiddleware.GetSessionID(r.Context())

	if sess.Impersonator == nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "a sessão não está em personificação", nil)
		return
	}

	restored := session.Session{Identity: *sess.Impersonator}
	if err := h.sessions.Update(r.Context(), sid, restored); err != nil {
		log.Error().Err(err).Msg("falha a atualizar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, sessionView(&restored))
}
