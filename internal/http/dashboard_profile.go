package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/gestora"
	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
	"github.com/creditohabitacao/leads-api/internal/util"
)

const rgpdMaxBytes = 10 << 20

// GetProfile devolve o perfil da gestora autenticada.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())

	g, err := h.gestoras.GetByID(r.Context(), sess.GestoraID)
	if err != nil {
		h.gestoraError(w, err, "falha a carregar perfil")
		return
	}
	hasRGPD, _ := h.storage.HasGestoraRGPD(g.ID)

	WriteJSON(w, http.StatusOK, map[string]any{"gestora": g, "tem_rgpd": hasRGPD})
}

// UpdateProfile atualiza o perfil da própria gestora. Um pedido
// multipart substitui o documento RGPD; um pedido JSON atualiza os
// restantes campos e, opcionalmente, a palavra-passe.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.updateProfileRGPD(w, r, sess.GestoraID)
		return
	}

	var payload struct {
		Nome           *string `json:"nome"`
		Whatsapp       *string `json:"whatsapp"`
		EmailParaLeads *string `json:"email_para_leads"`
		FotoPerfil     *string `json:"foto_perfil"`
		BoasVindas     *string `json:"boas_vindas"`
		PasswordAtual  *string `json:"password_atual"`
		PasswordNova   *string `json:"password_nova"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	in := gestora.UpdateInput{
		Nome:           payload.Nome,
		EmailParaLeads: payload.EmailParaLeads,
		Whatsapp:       payload.Whatsapp,
		FotoPerfil:     payload.FotoPerfil,
		BoasVindas:     payload.BoasVindas,
	}
	if payload.EmailParaLeads != nil && strings.TrimSpace(*payload.EmailParaLeads) != "" {
		email := util.NormalizeEmail(*payload.EmailParaLeads)
		if err := util.ValidateEmail(email); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		in.EmailParaLeads = &email
	}

	if err := h.gestoras.Repo().Update(r.Context(), sess.GestoraID, in); err != nil {
		h.gestoraError(w, err, "falha a atualizar perfil")
		return
	}

	if payload.PasswordNova != nil && *payload.PasswordNova != "" {
		if err := util.ValidatePassword(*payload.PasswordNova); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		atual := ""
		if payload.PasswordAtual != nil {
			atual = *payload.PasswordAtual
		}
		err := h.gestoras.ChangePassword(r.Context(), sess.GestoraID, atual, *payload.PasswordNova)
		switch {
		case errors.Is(err, gestora.ErrInvalidCredentials):
			WriteError(w, http.StatusBadRequest, "VALIDATION", "palavra-passe atual incorreta", nil)
			return
		case err != nil:
			log.Error().Err(err).Int64("gestora_id", sess.GestoraID).Msg("falha a trocar palavra-passe")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
	}

	g, err := h.gestoras.GetByID(r.Context(), sess.GestoraID)
	if err != nil {
		h.gestoraError(w, err, "falha a recarregar perfil")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"gestora": g})
}

func (h *Handler) updateProfileRGPD(w http.ResponseWriter, r *http.Request, gestoraID int64) {
	r.Body = http.MaxBytesReader(w, r.Body, rgpdMaxBytes)
	if err := r.ParseMultipartForm(rgpdMaxBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formulário inválido ou ficheiro demasiado grande", nil)
		return
	}

	file, header, err := r.FormFile("rgpd")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo rgpd em falta", nil)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "o documento RGPD tem de ser um PDF", nil)
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, rgpdMaxBytes+1))
	if err != nil || len(content) == 0 || len(content) > rgpdMaxBytes {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "falha a ler o ficheiro", nil)
		return
	}

	if err := h.storage.SaveGestoraRGPD(gestoraID, content); err != nil {
		log.Error().Err(err).Int64("gestora_id", gestoraID).Msg("falha a gravar RGPD")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GetProfileRGPD devolve o PDF RGPD da própria gestora.
func (h *Handler) GetProfileRGPD(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())

	content, err := h.storage.ReadGestoraRGPD(sess.GestoraID)
	if err != nil || content == nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "documento RGPD não encontrado", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
