package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/faq"
)

// ListPerguntasPublic devolve a lista de perguntas frequentes já
// respondidas, para o site e para o bot.
func (h *Handler) ListPerguntasPublic(w http.ResponseWriter, r *http.Request) {
	perguntas, err := h.faqs.Repo().ListPerguntas(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar perguntas")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	out := make([]*faq.Pergunta, 0, len(perguntas))
	for _, p := range perguntas {
		if !p.EhPendente {
			out = append(out, p)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"perguntas": out})
}

// GetPerguntaPublic devolve uma pergunta com as respostas das gestoras.
func (h *Handler) GetPerguntaPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	pergunta, err := h.faqs.Repo().GetPergunta(r.Context(), id)
	if err != nil {
		h.faqError(w, err, "falha a carregar pergunta")
		return
	}
	respostas, err := h.faqs.Repo().ListRespostas(r.Context(), id)
	if err != nil {
		h.faqError(w, err, "falha a carregar respostas")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"pergunta": pergunta, "respostas": respostas})
}

// IncrementarFrequencia regista que a pergunta voltou a ser feita.
func (h *Handler) IncrementarFrequencia(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.faqs.Repo().IncrementFrequencia(r.Context(), id); err != nil {
		h.faqError(w, err, "falha a incrementar frequência")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// DuvidasPendentesTextos devolve apenas os textos das dúvidas ainda sem
// resposta, para o bot evitar registos duplicados.
func (h *Handler) DuvidasPendentesTextos(w http.ResponseWriter, r *http.Request) {
	pendentes, err := h.faqs.Repo().ListPendentes(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar dúvidas pendentes")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	textos := make([]string, 0, len(pendentes))
	for _, p := range pendentes {
		textos = append(textos, p.Texto)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"textos": textos})
}

// RegistarDuvida regista uma dúvida vinda do bot; dúvidas repetidas só
// incrementam a frequência da existente.
func (h *Handler) RegistarDuvida(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Texto            string  `json:"texto"`
		ContactoWhatsapp *string `json:"contacto_whatsapp"`
		LeadID           *int64  `json:"lead_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Texto) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "texto obrigatório", nil)
		return
	}

	origem := faq.OrigemBot
	pergunta, criada, err := h.faqs.Register(r.Context(), payload.Texto, payload.ContactoWhatsapp, payload.LeadID, &origem)
	if err != nil {
		log.Error().Err(err).Msg("falha a registar dúvida")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	status := http.StatusOK
	if criada {
		status = http.StatusCreated
	}
	WriteJSON(w, status, map[string]any{"pergunta": pergunta, "criada": criada})
}

// InternalFAQAudio serve o áudio de uma resposta para a ponte Evo. A rota
// é protegida pelo segredo interno partilhado, passado em query string.
func (h *Handler) InternalFAQAudio(w http.ResponseWriter, r *http.Request) {
	if h.cfg.EvoSecret == "" {
		WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "ponte não configurada", nil)
		return
	}
	token := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.EvoSecret)) != 1 {
		WriteError(w, http.StatusUnauthorized, "AUTH", "segredo inválido", nil)
		return
	}

	perguntaID, ok := idParam(r, "perguntaID")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}
	gestoraID, ok := idParam(r, "gestoraID")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	audio, mimetype, err := h.faqs.Repo().GetAudio(r.Context(), perguntaID, gestoraID)
	if err != nil {
		h.faqError(w, err, "falha a carregar áudio")
		return
	}
	w.Header().Set("Content-Type", mimetype)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// ServeFAQAudio serve um áudio já materializado em disco pelo nome
// canónico. O nome é validado para impedir travessia de diretórios.
func (h *Handler) ServeFAQAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, err := h.storage.FAQAudioPath(filename)
	if err != nil {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "áudio não encontrado", nil)
		return
	}
	http.ServeFile(w, r, path)
}

func (h *Handler) faqError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, faq.ErrPerguntaNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "pergunta não encontrada", nil)
	case errors.Is(err, faq.ErrRespostaNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resposta não encontrada", nil)
	case errors.Is(err, faq.ErrSemAudio):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "nenhuma resposta com áudio", nil)
	default:
		log.Error().Err(err).Msg(msg)
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
