package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/lead"
)

//go:embed static/upload.html
var uploadFS embed.FS

var uploadTmpl = template.Must(template.ParseFS(uploadFS, "static/upload.html"))

// UploadPage serve a página de envio de documentos. A página só abre
// para leads com email confirmado e recolha ainda em curso; nos outros
// estados mostra a mensagem adequada em vez do formulário.
func (h *Handler) UploadPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "leadID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	l, err := h.leads.Repo().GetByID(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	data := struct {
		LeadID      int64
		Nome        string
		GestoraNome string
		PodeEnviar  bool
		JaEnviado   bool
		SemDocs     bool
	}{
		LeadID:     l.ID,
		PodeEnviar: l.EstadoDocs.AllowsUploadPage() && l.EstadoDocs.AcceptsDocuments(),
		JaEnviado:  l.EstadoDocs.ShowsSentMessage(),
		SemDocs:    l.EstadoDocs == lead.EstadoSemDocs,
	}
	if l.Nome != nil {
		data.Nome = *l.Nome
	}
	if l.GestoraNome != nil {
		data.GestoraNome = *l.GestoraNome
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := uploadTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Int64("lead_id", id).Msg("falha a renderizar página de upload")
	}
}
