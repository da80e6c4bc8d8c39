package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/gestora"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/mail"
	"github.com/creditohabitacao/leads-api/internal/util"
)

// ListLeadsEscalados devolve os leads que pediram atendimento humano.
// É a rota que o bot consulta, por isso o filtro é obrigatório.
func (h *Handler) ListLeadsEscalados(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("estado") != lead.ConversaFalarComRafa {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "parâmetro estado obrigatório", nil)
		return
	}

	leads, err := h.leads.Repo().ListForRafa(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar leads escalados")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar leads", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// LeadStatus devolve o estado visível pela página de upload.
func (h *Handler) LeadStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	l, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.leadError(w, err)
		return
	}

	nome := ""
	if l.Nome != nil {
		nome = *l.Nome
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":            l.ID,
		"nome":          nome,
		"tem_email":     l.HasEmail(),
		"estado_docs":   l.EstadoDocs,
		"docs_enviados": l.DocsEnviados,
		"gestora_nome":  l.GestoraNome,
	})
}

// LeadRGPD serve o PDF de consentimento da gestora atribuída ao lead.
func (h *Handler) LeadRGPD(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	l, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.leadError(w, err)
		return
	}
	if !l.HasGestora() {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "documento RGPD indisponível", nil)
		return
	}

	content, err := h.storage.ReadGestoraRGPD(*l.GestoraID)
	if err != nil || content == nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "documento RGPD indisponível", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="rgpd.pdf"`)
	_, _ = w.Write(content)
}

// LeadFotoGestora devolve os dados de apresentação da gestora atribuída.
func (h *Handler) LeadFotoGestora(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	l, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.leadError(w, err)
		return
	}
	if !l.HasGestora() {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "lead sem gestora atribuída", nil)
		return
	}

	g, err := h.gestoras.GetByID(r.Context(), *l.GestoraID)
	if err != nil {
		h.leadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"nome":        g.Nome,
		"foto_perfil": g.FotoPerfil,
		"boas_vindas": g.BoasVindas,
	})
}

// RequestVerification inicia a verificação de email de um lead.
func (h *Handler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Nome  string `json:"nome"`
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

	if err := h.leads.RequestVerification(r.Context(), id, payload.Nome, email); err != nil {
		switch {
		case errors.Is(err, lead.ErrAlreadyVerified):
			WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		case errors.Is(err, mail.ErrNotConfigured):
			WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "envio de email indisponível", nil)
		default:
			h.leadError(w, err)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"enviado": true})
}

// ConfirmEmail valida o código de verificação.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	l, err := h.leads.ConfirmCode(r.Context(), id, payload.Code)
	if err != nil {
		if errors.Is(err, lead.ErrCodeInvalid) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		h.leadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"confirmado":   true,
		"estado_docs":  l.EstadoDocs,
		"gestora_nome": l.GestoraNome,
	})
}

// NoCode regista que o código nunca chegou e escala para humano.
func (h *Handler) NoCode(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.leads.ReportNoCode(r.Context(), id); err != nil {
		if errors.Is(err, lead.ErrAlreadyVerified) {
			WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		}
		h.leadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"registado": true})
}

// VerifyAccess valida o par id+email usado pela página de upload.
func (h *Handler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	l, err := h.leads.VerifyAccess(r.Context(), id, payload.Email)
	if err != nil {
		h.leadError(w, err)
		return
	}

	nome := ""
	if l.Nome != nil {
		nome = *l.Nome
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"id":            l.ID,
		"nome":          nome,
		"estado_docs":   l.EstadoDocs,
		"docs_enviados": l.DocsEnviados,
	})
}

// SemDocs marca que o lead não tem os documentos para já.
func (h *Handler) SemDocs(w http.ResponseWriter, r *http.Request) {
	l, ok := h.authorizeLead(w, r)
	if !ok {
		return
	}

	if !l.EstadoDocs.AcceptsDocuments() {
		WriteError(w, http.StatusConflict, "CONFLICT", "o lead já não está em recolha de documentos", nil)
		return
	}

	if err := h.leads.Repo().UpdateEstadoDocs(r.Context(), l.ID, lead.EstadoSemDocs); err != nil {
		h.leadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"estado_docs": lead.EstadoSemDocs})
}

// UpdateLeadDados deixa o lead corrigir o próprio nome.
func (h *Handler) UpdateLeadDados(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Email string `json:"email"`
		Nome  string `json:"nome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	nome := strings.TrimSpace(payload.Nome)
	if nome == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "nome obrigatório", nil)
		return
	}

	l, err := h.leads.VerifyAccess(r.Context(), id, payload.Email)
	if err != nil {
		h.leadError(w, err)
		return
	}

	if err := h.leads.Repo().UpdateNome(r.Context(), l.ID, nome); err != nil {
		h.leadError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"nome": nome})
}

// authorizeLead valida o par id+email vindo de query ou formulário.
func (h *Handler) authorizeLead(w http.ResponseWriter, r *http.Request) (*lead.Lead, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return nil, false
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var payload struct {
				Email string `json:"email"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
				email = payload.Email
			}
		} else {
			email = r.FormValue("email")
		}
	}
	if email == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email obrigatório", nil)
		return nil, false
	}

	l, err := h.leads.VerifyAccess(r.Context(), id, email)
	if err != nil {
		h.leadError(w, err)
		return nil, false
	}
	return l, true
}

// leadError traduz erros comuns dos fluxos de lead para HTTP.
func (h *Handler) leadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lead.ErrNotFound), errors.Is(err, gestora.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "lead não encontrado", nil)
	case errors.Is(err, lead.ErrEmailNotVerified), errors.Is(err, lead.ErrAccessDenied):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("erro interno no fluxo de leads")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
