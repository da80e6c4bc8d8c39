package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/session"
)

// DashboardListLeads devolve todos os leads para o admin e apenas os
// atribuídos para uma gestora.
func (h *Handler) DashboardListLeads(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())

	var (
		leads []*lead.Lead
		err   error
	)
	if sess.Role == session.RoleGestora {
		leads, err = h.leads.Repo().ListByGestora(r.Context(), sess.GestoraID)
	} else {
		leads, err = h.leads.Repo().ListAll(r.Context())
	}
	if err != nil {
		log.Error().Err(err).Msg("falha a listar leads")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar leads", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// DashboardLeadsRafa lista os leads escalados para atendimento humano.
func (h *Handler) DashboardLeadsRafa(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.Repo().ListForRafa(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar leads escalados")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar leads", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// DashboardLeadsRafaCount devolve o contador do badge de escalados.
func (h *Handler) DashboardLeadsRafaCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.leads.Repo().CountForRafa(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a contar leads escalados")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"count": n})
}

// DashboardUpdateLead aplica uma atualização parcial. Gestoras só tocam
// nos próprios leads e apenas no estado de documentos e comentário; o
// admin pode tudo, incluindo reatribuir a gestora.
func (h *Handler) DashboardUpdateLead(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())

	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Nome             *string `json:"nome"`
		Email            *string `json:"email"`
		EstadoConversa   *string `json:"estado_conversa"`
		QuerFalarComRafa *bool   `json:"quer_falar_com_rafa"`
		EstadoDocs       *string `json:"estado_docs"`
		Comentario       *string `json:"comentario"`
		GestoraID        *int64  `json:"gestora_id"`
		ClearGestora     bool    `json:"remover_gestora"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	current, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.leadError(w, err)
		return
	}

	in := lead.AdminUpdateInput{Comentario: payload.Comentario}
	if payload.EstadoDocs != nil {
		estado := lead.EstadoDocs(*payload.EstadoDocs)
		if !estado.Valid() {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "estado_docs inválido", nil)
			return
		}
		in.EstadoDocs = &estado
	}

	// em personificação o admin edita como a gestora editaria
	if sess.Role == session.RoleAdmin {
		in.Nome = payload.Nome
		in.Email = payload.Email
		in.EstadoConversa = payload.EstadoConversa
		in.QuerFalarComRafa = payload.QuerFalarComRafa
		in.GestoraID = payload.GestoraID
		in.ClearGestora = payload.ClearGestora
	} else {
		if current.GestoraID == nil || *current.GestoraID != sess.GestoraID {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "o lead não está atribuído a esta gestora", nil)
			return
		}
		if payload.Nome != nil || payload.Email != nil || payload.GestoraID != nil || payload.ClearGestora {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "campo reservado ao admin", nil)
			return
		}
	}

	if err := h.leads.AdminUpdate(r.Context(), id, in); err != nil {
		h.leadError(w, err)
		return
	}

	updated, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.leadError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"lead": updated})
}

// DashboardDeleteLead apaga o lead e os ficheiros associados.
func (h *Handler) DashboardDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.leads.Repo().Delete(r.Context(), id); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "lead não encontrado", nil)
			return
		}
		log.Error().Err(err).Int64("lead_id", id).Msg("falha a apagar lead")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	if err := h.storage.DeleteLead(id); err != nil {
		log.Warn().Err(err).Int64("lead_id", id).Msg("falha a limpar ficheiros do lead")
	}

	WriteJSON(w, http.StatusOK, map[string]any{"apagado": true})
}
