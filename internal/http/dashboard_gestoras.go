package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/auth"
	"github.com/creditohabitacao/leads-api/internal/gestora"
	"github.com/creditohabitacao/leads-api/internal/util"
)

// ListGestoras devolve as gestoras com a carga atual de leads.
func (h *Handler) ListGestoras(w http.ResponseWriter, r *http.Request) {
	list, err := h.gestoras.Repo().List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar gestoras")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar gestoras", nil)
		return
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		hasRGPD, _ := h.storage.HasGestoraRGPD(item.Gestora.ID)
		out = append(out, map[string]any{
			"gestora":    item.Gestora,
			"num_leads":  item.LeadCount,
			"tem_rgpd":   hasRGPD,
			"tem_acesso": item.Gestora.HasPassword(),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{"gestoras": out})
}

// CreateGestora regista uma gestora nova; a palavra-passe é opcional e
// pode ficar para a própria definir via recuperação.
func (h *Handler) CreateGestora(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome           string  `json:"nome"`
		Email          string  `json:"email"`
		EmailParaLeads *string `json:"email_para_leads"`
		Whatsapp       string  `json:"whatsapp"`
		FotoPerfil     *string `json:"foto_perfil"`
		BoasVindas     *string `json:"boas_vindas"`
		Ativo          *bool   `json:"ativo"`
		Password       string  `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	nome := strings.TrimSpace(payload.Nome)
	email := util.NormalizeEmail(payload.Email)
	if nome == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "nome obrigatório", nil)
		return
	}
	if err := util.ValidateEmail(email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	ativo := true
	if payload.Ativo != nil {
		ativo = *payload.Ativo
	}

	in := gestora.CreateInput{
		Nome:           nome,
		Email:          email,
		EmailParaLeads: payload.EmailParaLeads,
		Whatsapp:       util.DigitsOnly(payload.Whatsapp),
		FotoPerfil:     payload.FotoPerfil,
		BoasVindas:     payload.BoasVindas,
		Ativo:          ativo,
	}
	if payload.Password != "" {
		if err := util.ValidatePassword(payload.Password); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		hash, err := auth.Hash(payload.Password)
		if err != nil {
			log.Error().Err(err).Msg("falha a gerar hash")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
		in.PasswordHash = &hash
	}

	created, err := h.gestoras.Repo().Create(r.Context(), in)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			WriteError(w, http.StatusConflict, "CONFLICT", "já existe uma gestora com este email", nil)
			return
		}
		log.Error().Err(err).Msg("falha a criar gestora")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"gestora": created})
}

// UpdateGestora aplica uma atualização parcial vinda do admin.
func (h *Handler) UpdateGestora(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Nome           *string `json:"nome"`
		Email          *string `json:"email"`
		EmailParaLeads *string `json:"email_para_leads"`
		Whatsapp       *string `json:"whatsapp"`
		FotoPerfil     *string `json:"foto_perfil"`
		BoasVindas     *string `json:"boas_vindas"`
		Ativo          *bool   `json:"ativo"`
		Password       *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	in := gestora.UpdateInput{
		Nome:           payload.Nome,
		EmailParaLeads: payload.EmailParaLeads,
		FotoPerfil:     payload.FotoPerfil,
		BoasVindas:     payload.BoasVindas,
		Ativo:          payload.Ativo,
	}
	if payload.Email != nil {
		email := util.NormalizeEmail(*payload.Email)
		if err := util.ValidateEmail(email); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		in.Email = &email
	}
	if payload.Whatsapp != nil {
		digits := util.DigitsOnly(*payload.Whatsapp)
		in.Whatsapp = &digits
	}

	if err := h.gestoras.Repo().Update(r.Context(), id, in); err != nil {
		h.gestoraError(w, err, "falha a atualizar gestora")
		return
	}

	if payload.Password != nil && *payload.Password != "" {
		if err := util.ValidatePassword(*payload.Password); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		hash, err := auth.Hash(*payload.Password)
		if err == nil {
			err = h.gestoras.Repo().SetPassword(r.Context(), id, hash)
		}
		if err != nil {
			log.Error().Err(err).Int64("gestora_id", id).Msg("falha a definir palavra-passe")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
	}

	updated, err := h.gestoras.GetByID(r.Context(), id)
	if err != nil {
		h.gestoraError(w, err, "falha a carregar gestora")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"gestora": updated})
}

// DeleteGestora remove a gestora; os leads dela ficam por atribuir.
func (h *Handler) DeleteGestora(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.gestoras.Repo().Delete(r.Context(), id); err != nil {
		h.gestoraError(w, err, "falha a apagar gestora")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"apagada": true})
}

func (h *Handler) gestoraError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, gestora.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "gestora não encontrada", nil)
		return
	}
	log.Error().Err(err).Msg(msg)
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}
