package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/creditohabitacao/leads-api/internal/faq"
	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
)

const audioMaxBytes = 5 << 20

// DashboardListPerguntas devolve todas as perguntas com as respetivas
// respostas, para o ecrã de FAQ do dashboard.
func (h *Handler) DashboardListPerguntas(w http.ResponseWriter, r *http.Request) {
	perguntas, err := h.faqs.Repo().ListPerguntas(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar perguntas")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	out := make([]map[string]any, 0, len(perguntas))
	for _, p := range perguntas {
		respostas, err := h.faqs.Repo().ListRespostas(r.Context(), p.ID)
		if err != nil {
			log.Error().Err(err).Int64("pergunta_id", p.ID).Msg("falha a carregar respostas")
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
			return
		}
		out = append(out, map[string]any{"pergunta": p, "respostas": respostas})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"perguntas": out})
}

// DashboardGetPergunta devolve uma pergunta com as respostas.
func (h *Handler) DashboardGetPergunta(w http.ResponseWriter, r *http.Request) {
	h.GetPerguntaPublic(w, r)
}

// DashboardCreatePergunta cria uma pergunta já curada pelo admin.
func (h *Handler) DashboardCreatePergunta(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Texto string `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Texto) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "texto obrigatório", nil)
		return
	}

	origem := faq.OrigemDashboard
	pergunta, _, err := h.faqs.Register(r.Context(), payload.Texto, nil, nil, &origem)
	if err != nil {
		log.Error().Err(err).Msg("falha a criar pergunta")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"pergunta": pergunta})
}

// DashboardUpdatePergunta aplica uma atualização parcial do admin.
func (h *Handler) DashboardUpdatePergunta(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Texto            *string `json:"texto"`
		EhPendente       *bool   `json:"eh_pendente"`
		ContactoWhatsapp *string `json:"contacto_whatsapp"`
		Origem           *string `json:"origem"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if payload.Texto != nil && strings.TrimSpace(*payload.Texto) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "texto não pode ficar vazio", nil)
		return
	}

	in := faq.PerguntaUpdateInput{
		Texto:            payload.Texto,
		EhPendente:       payload.EhPendente,
		ContactoWhatsapp: payload.ContactoWhatsapp,
		Origem:           payload.Origem,
	}
	if err := h.faqs.Repo().UpdatePergunta(r.Context(), id, in); err != nil {
		h.faqError(w, err, "falha a atualizar pergunta")
		return
	}

	pergunta, err := h.faqs.Repo().GetPergunta(r.Context(), id)
	if err != nil {
		h.faqError(w, err, "falha a recarregar pergunta")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"pergunta": pergunta})
}

// DashboardDeletePergunta apaga a pergunta e as respostas em cascata.
func (h *Handler) DashboardDeletePergunta(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}
	if err := h.faqs.Repo().DeletePergunta(r.Context(), id); err != nil {
		h.faqError(w, err, "falha a apagar pergunta")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"apagada": true})
}

// AnswerPergunta grava ou substitui a resposta em texto da gestora.
func (h *Handler) AnswerPergunta(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	id, okID := idParam(r, "id")
	if !okID {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Texto string `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Texto) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "texto obrigatório", nil)
		return
	}

	if err := h.faqs.AnswerTexto(r.Context(), id, sess.GestoraID, payload.Texto); err != nil {
		h.faqError(w, err, "falha a gravar resposta")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// AnswerPerguntaAudio grava a resposta em áudio da gestora. O áudio vem
// num formulário multipart no campo "audio".
func (h *Handler) AnswerPerguntaAudio(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	id, okID := idParam(r, "id")
	if !okID {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	audio, mimetype, transcricao, ok := readAudioForm(w, r)
	if !ok {
		return
	}
	if len(audio) == 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo audio em falta", nil)
		return
	}

	if err := h.faqs.AnswerAudio(r.Context(), id, sess.GestoraID, audio, mimetype, transcricao); err != nil {
		h.faqError(w, err, "falha a gravar áudio")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"filename": faq.AudioFilename(id, sess.GestoraID, mimetype),
	})
}

// DeleteMinhaResposta remove a resposta da própria gestora; se for a
// última, a pergunta volta a ficar pendente.
func (h *Handler) DeleteMinhaResposta(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	id, okID := idParam(r, "id")
	if !okID {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.faqs.DeleteResposta(r.Context(), id, sess.GestoraID); err != nil {
		h.faqError(w, err, "falha a apagar resposta")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"apagada": true})
}

// DashboardFAQAudio serve o áudio da resposta da própria gestora.
func (h *Handler) DashboardFAQAudio(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	perguntaID, okID := idParam(r, "perguntaID")
	if !okID {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	audio, mimetype, err := h.faqs.Repo().GetAudio(r.Context(), perguntaID, sess.GestoraID)
	if err != nil {
		h.faqError(w, err, "falha a carregar áudio")
		return
	}
	w.Header().Set("Content-Type", mimetype)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// DashboardFAQAudioAdmin serve ao admin o áudio mais antigo da pergunta.
func (h *Handler) DashboardFAQAudioAdmin(w http.ResponseWriter, r *http.Request) {
	perguntaID, ok := idParam(r, "perguntaID")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	_, audio, mimetype, err := h.faqs.Repo().FirstAudio(r.Context(), perguntaID)
	if err != nil {
		h.faqError(w, err, "falha a carregar áudio")
		return
	}
	w.Header().Set("Content-Type", mimetype)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// ListDuvidasPendentes devolve as dúvidas ainda sem resposta.
func (h *Handler) ListDuvidasPendentes(w http.ResponseWriter, r *http.Request) {
	pendentes, err := h.faqs.Repo().ListPendentes(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a listar dúvidas pendentes")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"duvidas": pendentes})
}

// CountDuvidasPendentes devolve a contagem para o badge do dashboard.
func (h *Handler) CountDuvidasPendentes(w http.ResponseWriter, r *http.Request) {
	count, err := h.faqs.Repo().CountPendentes(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("falha a contar dúvidas pendentes")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"count": count})
}

// CreateDuvida regista uma dúvida manualmente a partir do dashboard.
func (h *Handler) CreateDuvida(w http.ResponseWriter, r *http.Request) {
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

	origem := faq.OrigemDashboard
	pergunta, criada, err := h.faqs.Register(r.Context(), payload.Texto, payload.ContactoWhatsapp, payload.LeadID, &origem)
	if err != nil {
		log.Error().Err(err).Msg("falha a criar dúvida")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	status := http.StatusOK
	if criada {
		status = http.StatusCreated
	}
	WriteJSON(w, status, map[string]any{"pergunta": pergunta, "criada": criada})
}

// UpdateDuvida reaproveita a atualização parcial de pergunta.
func (h *Handler) UpdateDuvida(w http.ResponseWriter, r *http.Request) {
	h.DashboardUpdatePergunta(w, r)
}

// DeleteDuvida apaga uma dúvida pendente.
func (h *Handler) DeleteDuvida(w http.ResponseWriter, r *http.Request) {
	h.DashboardDeletePergunta(w, r)
}

// ResponderDuvida responde a uma dúvida pendente e reencaminha a
// resposta para o WhatsApp do autor quando a ponte está configurada. O
// envio é melhor esforço; a resposta fica gravada mesmo que falhe.
func (h *Handler) ResponderDuvida(w http.ResponseWriter, r *http.Request) {
	sess := httpmiddleware.GetSession(r.Context())
	id, okID := idParam(r, "id")
	if !okID {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	pergunta, err := h.faqs.Repo().GetPergunta(r.Context(), id)
	if err != nil {
		h.faqError(w, err, "falha a carregar dúvida")
		return
	}

	var (
		texto       string
		audio       []byte
		mimetype    string
		transcricao *string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var ok bool
		audio, mimetype, transcricao, ok = readAudioForm(w, r)
		if !ok {
			return
		}
		texto = strings.TrimSpace(r.FormValue("texto"))
	} else {
		var payload struct {
			Texto string `json:"texto"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
			return
		}
		texto = strings.TrimSpace(payload.Texto)
	}
	if texto == "" && len(audio) == 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resposta precisa de texto ou áudio", nil)
		return
	}

	if texto != "" {
		if err := h.faqs.AnswerTexto(r.Context(), id, sess.GestoraID, texto); err != nil {
			h.faqError(w, err, "falha a gravar resposta")
			return
		}
	}
	if len(audio) > 0 {
		if err := h.faqs.AnswerAudio(r.Context(), id, sess.GestoraID, audio, mimetype, transcricao); err != nil {
			h.faqError(w, err, "falha a gravar áudio")
			return
		}
	}

	if h.evo.Enabled() && pergunta.ContactoWhatsapp != nil && *pergunta.ContactoWhatsapp != "" {
		h.forwardRespostaWhatsapp(r.Context(), pergunta, sess.Nome)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// forwardRespostaWhatsapp reencaminha a resposta para o autor da dúvida:
// uma mensagem de apresentação seguida de todas as respostas em áudio já
// guardadas, servidas pelo URL interno autenticado por token. Tudo é
// melhor esforço.
func (h *Handler) forwardRespostaWhatsapp(ctx context.Context, pergunta *faq.Pergunta, gestoraNome string) {
	numero := soDigitos(*pergunta.ContactoWhatsapp)
	if numero == "" {
		return
	}
	nome := strings.TrimSpace(gestoraNome)
	if nome == "" {
		nome = "Gestora"
	}

	intro := fmt.Sprintf("✨\n✨ %s respondeu sua dúvida\n\n❓ %q", nome, strings.TrimSpace(pergunta.Texto))
	if err := h.evo.SendText(ctx, numero, intro); err != nil {
		log.Warn().Err(err).Int64("pergunta_id", pergunta.ID).Msg("falha a enviar texto pela ponte")
		return
	}

	if h.cfg.AppURL == "" || h.cfg.EvoSecret == "" {
		log.Warn().Int64("pergunta_id", pergunta.ID).Msg("APP_URL ou EVO_INTERNAL_SECRET em falta; áudios não reencaminhados")
		return
	}
	respostas, err := h.faqs.Repo().ListRespostas(ctx, pergunta.ID)
	if err != nil {
		log.Warn().Err(err).Int64("pergunta_id", pergunta.ID).Msg("falha a carregar respostas para reencaminhar")
		return
	}
	for _, resp := range respostas {
		if !resp.TemAudio {
			continue
		}
		audioURL := fmt.Sprintf("%s/api/internal/faq-audio/%d/%d?token=%s",
			h.cfg.AppURL, pergunta.ID, resp.GestoraID, url.QueryEscape(h.cfg.EvoSecret))
		if err := h.evo.SendAudioURL(ctx, numero, audioURL); err != nil {
			log.Warn().Err(err).Int64("pergunta_id", pergunta.ID).Int64("gestora_id", resp.GestoraID).Msg("falha a enviar áudio pela ponte")
		}
	}
}

// soDigitos reduz um contacto WhatsApp aos dígitos.
func soDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// readAudioForm lê o campo "audio" de um formulário multipart, junto com
// a transcrição opcional. Escreve a resposta de erro quando devolve false.
func readAudioForm(w http.ResponseWriter, r *http.Request) (audio []byte, mimetype string, transcricao *string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, audioMaxBytes)
	if err := r.ParseMultipartForm(audioMaxBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formulário inválido ou áudio demasiado grande", nil)
		return nil, "", nil, false
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		if t := strings.TrimSpace(r.FormValue("texto")); t != "" {
			// Formulário só com texto é aceitável em ResponderDuvida.
			return nil, "", nil, true
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo audio em falta", nil)
		return nil, "", nil, false
	}
	defer file.Close()

	audio, err = io.ReadAll(io.LimitReader(file, audioMaxBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "falha a ler áudio", nil)
		return nil, "", nil, false
	}
	if len(audio) > audioMaxBytes {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "áudio demasiado grande", nil)
		return nil, "", nil, false
	}

	mimetype = header.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "audio/ogg"
	}
	if t := strings.TrimSpace(r.FormValue("transcricao")); t != "" {
		transcricao = &t
	}
	return audio, mimetype, transcricao, true
}
