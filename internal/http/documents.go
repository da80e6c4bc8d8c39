package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/docs"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/mail"
)

// uploadMaxBytes limita cada ficheiro enviado pela página de upload.
const uploadMaxBytes = 10 << 20

// ListDocuments devolve o estado dos documentos guardados do lead.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	l, ok := h.authorizeLead(w, r)
	if !ok {
		return
	}

	list, err := h.storage.ListDocuments(l.ID)
	if err != nil {
		log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a listar documentos")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	out := make(map[string]any, len(list))
	for k, d := range list {
		out[string(k)] = map[string]any{
			"uploaded": d.Uploaded,
			"filename": d.Filename,
			"label":    docs.Label(k),
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"documentos": out})
}

// UploadDocument recebe um documento da página de upload e guarda-o com
// o nome canónico do campo.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadMaxBytes+1<<20)
	if err := r.ParseMultipartForm(uploadMaxBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formulário inválido ou ficheiro demasiado grande", nil)
		return
	}

	l, ok := h.authorizeLead(w, r)
	if !ok {
		return
	}
	if !l.EstadoDocs.AcceptsDocuments() {
		WriteError(w, http.StatusConflict, "CONFLICT", "o lead já não está em recolha de documentos", nil)
		return
	}

	field := docs.Key(r.FormValue("field"))
	if !docs.IsValid(field) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo de documento desconhecido", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "ficheiro obrigatório", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, uploadMaxBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "não foi possível ler o ficheiro", nil)
		return
	}
	if len(content) > uploadMaxBytes {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "ficheiro demasiado grande", nil)
		return
	}

	filename, err := h.storage.SaveDocument(l.ID, field, content, header.Filename)
	if err != nil {
		log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a guardar documento")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"field":    string(field),
		"filename": filename,
	})
}

// SendDocuments valida o conjunto obrigatório e envia o pacote por email
// para a gestora do lead.
func (h *Handler) SendDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Email                 string `json:"email"`
		Vinculo               string `json:"vinculo"`
		Financiamento100      bool   `json:"financiamento_100"`
		EstadoCivil           string `json:"estado_civil"`
		NumDependentes        string `json:"num_dependentes"`
		AnosEmprego           string `json:"anos_emprego"`
		DisponibilidadeFiador string `json:"disponibilidade_fiador"`
		Mensagem              string `json:"mensagem"`
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

	list, err := h.storage.ListDocuments(l.ID)
	if err != nil {
		log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a listar documentos")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	files := make(map[docs.Key]mail.Attachment, len(list))
	for k, d := range list {
		if !d.Uploaded {
			continue
		}
		content, filename, err := h.storage.ReadDocument(l.ID, k)
		if err != nil {
			log.Error().Err(err).Int64("lead_id", l.ID).Str("field", string(k)).Msg("falha a ler documento")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
		if content == nil {
			continue
		}
		files[k] = mail.Attachment{Filename: filename, Content: content}
	}

	req := lead.PackageRequest{
		Vinculo:       payload.Vinculo,
		Financiamento: payload.Financiamento100,
		Mensagem:      payload.Mensagem,
		Files:         files,
		Resumo: []mail.ResumoItem{
			{Label: "Vínculo laboral", Value: payload.Vinculo},
			{Label: "Financiamento a 100%", Value: boolPT(payload.Financiamento100)},
			{Label: "Estado civil", Value: payload.EstadoCivil},
			{Label: "Número de dependentes", Value: payload.NumDependentes},
			{Label: "Anos no emprego atual", Value: payload.AnosEmprego},
			{Label: "Disponibilidade de fiador", Value: payload.DisponibilidadeFiador},
		},
	}

	if err := h.leads.SendDocuments(r.Context(), l, req); err != nil {
		var missing *lead.MissingDocumentsError
		switch {
		case errors.As(err, &missing):
			WriteError(w, http.StatusBadRequest, "VALIDATION", "faltam documentos obrigatórios", missing.Labels())
		case errors.Is(err, lead.ErrAlreadySent):
			WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		case errors.Is(err, mail.ErrNotConfigured):
			WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "envio de email indisponível", nil)
		default:
			log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a enviar pacote de documentos")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível enviar os documentos", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"enviado": true})
}

func boolPT(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
