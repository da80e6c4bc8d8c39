package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditohabitacao/leads-api/internal/config"
	"github.com/creditohabitacao/leads-api/internal/docs"
	"github.com/creditohabitacao/leads-api/internal/evo"
	"github.com/creditohabitacao/leads-api/internal/faq"
	"github.com/creditohabitacao/leads-api/internal/gestora"
	httpmiddleware "github.com/creditohabitacao/leads-api/internal/http/middleware"
	"github.com/creditohabitacao/leads-api/internal/lead"
	"github.com/creditohabitacao/leads-api/internal/mail"
	"github.com/creditohabitacao/leads-api/internal/session"
	"github.com/creditohabitacao/leads-api/internal/storage"
)

type stubLeadStore struct {
	leads map[int64]*lead.Lead
}

func newStubLeadStore(leads ...*lead.Lead) *stubLeadStore {
	s := &stubLeadStore{leads: map[int64]*lead.Lead{}}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *stubLeadStore) GetByID(_ context.Context, id int64) (*lead.Lead, error) {
	l, ok := s.leads[id]
	if !ok {
		return nil, lead.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *stubLeadStore) ListAll(context.Context) ([]*lead.Lead, error) {
	out := make([]*lead.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l)
	}
	return out, nil
}

func (s *stubLeadStore) ListByGestora(_ context.Context, gestoraID int64) ([]*lead.Lead, error) {
	var out []*lead.Lead
	for _, l := range s.leads {
		if l.GestoraID != nil && *l.GestoraID == gestoraID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *stubLeadStore) ListForRafa(context.Context) ([]*lead.Summary, error) { return nil, nil }
func (s *stubLeadStore) CountForRafa(context.Context) (int, error)            { return 0, nil }

func (s *stubLeadStore) SetEmailVerification(_ context.Context, id int64, nome, email, code string) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	now := time.Now()
	l.PendingNome = &nome
	l.PendingEmail = &email
	l.EmailVerificationCode = &code
	l.EmailVerificationSentAt = &now
	return nil
}

func (s *stubLeadStore) ConfirmEmail(_ context.Context, id int64) (bool, error) {
	l, ok := s.leads[id]
	if !ok || l.PendingEmail == nil {
		return false, nil
	}
	l.Email = l.PendingEmail
	if l.PendingNome != nil {
		l.Nome = l.PendingNome
	}
	l.PendingNome, l.PendingEmail = nil, nil
	l.EmailVerificationCode, l.EmailVerificationSentAt = nil, nil
	return true, nil
}

func (s *stubLeadStore) UpdateEstadoDocs(_ context.Context, id int64, estado lead.EstadoDocs) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	l.EstadoDocs = estado
	return nil
}

func (s *stubLeadStore) MarkDocsEnviados(_ context.Context, id int64) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	l.DocsEnviados = true
	l.EstadoDocs = lead.EstadoDocsEnviados
	return nil
}

func (s *stubLeadStore) AssignGestora(_ context.Context, id int64, gestoraID *int64, gestoraNome *string) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	l.GestoraID, l.GestoraNome = gestoraID, gestoraNome
	return nil
}

func (s *stubLeadStore) UpdateNome(_ context.Context, id int64, nome string) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	l.Nome = &nome
	return nil
}

func (s *stubLeadStore) SetNoCode(_ context.Context, id int64) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	l.QuerFalarComRafa = true
	return nil
}

func (s *stubLeadStore) AdminUpdate(_ context.Context, id int64, in lead.AdminUpdateInput) error {
	l, ok := s.leads[id]
	if !ok {
		return lead.ErrNotFound
	}
	if in.Nome != nil {
		l.Nome = in.Nome
	}
	if in.Email != nil {
		l.Email = in.Email
	}
	if in.EstadoDocs != nil {
		l.EstadoDocs = *in.EstadoDocs
	}
	if in.Comentario != nil {
		l.Comentario = in.Comentario
	}
	if in.ClearGestora {
		l.GestoraID, l.GestoraNome = nil, nil
	} else if in.GestoraID != nil {
		l.GestoraID = in.GestoraID
		l.GestoraNome = in.GestoraNome
	}
	return nil
}

func (s *stubLeadStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.leads[id]; !ok {
		return lead.ErrNotFound
	}
	delete(s.leads, id)
	return nil
}

type stubDirectory struct {
	byID map[int64]*gestora.Gestora
}

func (d *stubDirectory) GetByID(_ context.Context, id int64) (*gestora.Gestora, error) {
	g, ok := d.byID[id]
	if !ok {
		return nil, gestora.ErrNotFound
	}
	return g, nil
}

func (d *stubDirectory) PickForLead(context.Context, string) (*gestora.Gestora, error) {
	return nil, gestora.ErrNoneActive
}

type stubMailer struct {
	configured bool
	packages   []mail.PackageInput
	codes      []string
}

func (m *stubMailer) Configured() bool { return m.configured }

func (m *stubMailer) SendVerificationCode(_ context.Context, to, nome, code string) error {
	m.codes = append(m.codes, code)
	return nil
}

func (m *stubMailer) SendDocumentPackage(_ context.Context, in mail.PackageInput) error {
	m.packages = append(m.packages, in)
	return nil
}

type handlerFixture struct {
	handler *Handler
	store   *stubLeadStore
	mailer  *stubMailer
}

func newHandlerFixture(t *testing.T, leads ...*lead.Lead) *handlerFixture {
	t.Helper()

	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	store := newStubLeadStore(leads...)
	mailer := &stubMailer{configured: true}
	gid := int64(7)
	gmail := "ana@creditohabitacao.pt"
	dir := &stubDirectory{byID: map[int64]*gestora.Gestora{
		gid: {ID: gid, Nome: "Ana", Email: gmail, Ativo: true},
	}}

	logger := zerolog.Nop()
	svc := lead.NewService(store, dir, mailer, files, "", logger)

	return &handlerFixture{
		handler: &Handler{
			cfg:     &config.Config{},
			leads:   svc,
			storage: files,
		},
		store:  store,
		mailer: mailer,
	}
}

func leadAguardandoDocs(id int64) *lead.Lead {
	email := "lead@example.pt"
	nome := "Maria"
	gid := int64(7)
	gnome := "Ana"
	return &lead.Lead{
		ID:             id,
		WhatsappNumber: "351910000000",
		Nome:           &nome,
		Email:          &email,
		EstadoDocs:     lead.EstadoAguardandoDocs,
		GestoraID:      &gid,
		GestoraNome:    &gnome,
	}
}

func doJSON(h http.HandlerFunc, method, target string, params map[string]string, sess *session.Session, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = httpmiddleware.WithSession(ctx, sess)
	}

	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRequestVerificationRejeitaEmailInvalido(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.RequestVerification, http.MethodPost, "/api/leads/1/request-verification",
		map[string]string{"id": "1"}, nil, map[string]string{"nome": "Maria", "email": "nao-e-email"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, rec))
}

func TestSendDocumentsListaDocumentosEmFalta(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.SendDocuments, http.MethodPost, "/api/leads/1/send-email",
		map[string]string{"id": "1"}, nil, map[string]any{
			"email":   "lead@example.pt",
			"vinculo": "Recibos verdes",
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code    string   `json:"code"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION", body.Error.Code)
	assert.Contains(t, body.Error.Details, docs.Label(docs.ExtratoRecibos12Meses))
	assert.Contains(t, body.Error.Details, docs.Label(docs.RGPDAssinado))
	assert.Empty(t, f.mailer.packages)
}

func TestSendDocumentsComPacoteCompleto(t *testing.T) {
	l := leadAguardandoDocs(1)
	f := newHandlerFixture(t, l)

	for _, k := range docs.Required("Recibos verdes", false) {
		_, err := f.handler.storage.SaveDocument(l.ID, k, []byte("conteudo"), "doc.pdf")
		require.NoError(t, err)
	}

	rec := doJSON(f.handler.SendDocuments, http.MethodPost, "/api/leads/1/send-email",
		map[string]string{"id": "1"}, nil, map[string]any{
			"email":   "LEAD@example.pt",
			"vinculo": "Recibos verdes",
		})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.mailer.packages, 1)
	assert.Equal(t, "ana@creditohabitacao.pt", f.mailer.packages[0].To)
	assert.True(t, f.store.leads[1].DocsEnviados)
}

func TestSendDocumentsJaEnviado(t *testing.T) {
	l := leadAguardandoDocs(1)
	l.DocsEnviados = true
	l.EstadoDocs = lead.EstadoDocsEnviados
	f := newHandlerFixture(t, l)

	rec := doJSON(f.handler.SendDocuments, http.MethodPost, "/api/leads/1/send-email",
		map[string]string{"id": "1"}, nil, map[string]any{
			"email":   "lead@example.pt",
			"vinculo": "Recibos verdes",
		})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec))
}

func TestSendDocumentsSemEmailConfigurado(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))
	f.mailer.configured = false

	rec := doJSON(f.handler.SendDocuments, http.MethodPost, "/api/leads/1/send-email",
		map[string]string{"id": "1"}, nil, map[string]any{
			"email":   "lead@example.pt",
			"vinculo": "Recibos verdes",
		})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_CONFIGURED", errorCode(t, rec))
}

func gestoraSession(gestoraID int64) *session.Session {
	return &session.Session{Identity: session.Identity{
		Role:      session.RoleGestora,
		GestoraID: gestoraID,
		Email:     "gestora@example.pt",
	}}
}

func adminSession() *session.Session {
	return &session.Session{Identity: session.Identity{
		Role:  session.RoleAdmin,
		Email: "admin@example.pt",
	}}
}

func TestDashboardUpdateLeadGestoraNoProprioLead(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.DashboardUpdateLead, http.MethodPatch, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, gestoraSession(7), map[string]any{
			"estado_docs": "inviavel",
			"comentario":  "sem rendimentos suficientes",
		})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, lead.EstadoInviavel, f.store.leads[1].EstadoDocs)
	require.NotNil(t, f.store.leads[1].Comentario)
	assert.Equal(t, "sem rendimentos suficientes", *f.store.leads[1].Comentario)
}

func TestDashboardUpdateLeadGestoraLeadAlheio(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.DashboardUpdateLead, http.MethodPatch, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, gestoraSession(99), map[string]any{
			"estado_docs": "inviavel",
		})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, lead.EstadoAguardandoDocs, f.store.leads[1].EstadoDocs)
}

func TestDashboardUpdateLeadGestoraCampoReservado(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.DashboardUpdateLead, http.MethodPatch, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, gestoraSession(7), map[string]any{
			"nome": "Outro Nome",
		})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestDashboardUpdateLeadAdminReatribui(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.DashboardUpdateLead, http.MethodPatch, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, adminSession(), map[string]any{
			"gestora_id": 7,
			"nome":       "Maria Silva",
		})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.store.leads[1].GestoraID)
	assert.Equal(t, int64(7), *f.store.leads[1].GestoraID)
	require.NotNil(t, f.store.leads[1].Nome)
	assert.Equal(t, "Maria Silva", *f.store.leads[1].Nome)
}

func TestDashboardUpdateLeadEstadoInvalido(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	rec := doJSON(f.handler.DashboardUpdateLead, http.MethodPatch, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, adminSession(), map[string]any{
			"estado_docs": "estado_que_nao_existe",
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPagePorEstado(t *testing.T) {
	aberto := leadAguardandoDocs(1)
	enviado := leadAguardandoDocs(2)
	enviado.EstadoDocs = lead.EstadoDocsEnviados
	f := newHandlerFixture(t, aberto, enviado)

	rec := doJSON(f.handler.UploadPage, http.MethodGet, "/upload/1",
		map[string]string{"leadID": "1"}, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enviar documentos")

	rec = doJSON(f.handler.UploadPage, http.MethodGet, "/upload/2",
		map[string]string{"leadID": "2"}, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "em análise")

	rec = doJSON(f.handler.UploadPage, http.MethodGet, "/upload/99",
		map[string]string{"leadID": "99"}, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocumentsExigeEmailDoLead(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/1/documents?email=outro@example.pt", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.ListDocuments(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/leads/1/documents?email=lead@example.pt", nil)
	rctx = chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec = httptest.NewRecorder()
	f.handler.ListDocuments(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.Contains(rec.Body.String(), string(docs.CartaoResidencia)), rec.Body.String())
}

func TestVerifyAccessDistingueRecusaDeInexistente(t *testing.T) {
	semEmail := leadAguardandoDocs(2)
	semEmail.Email = nil
	f := newHandlerFixture(t, leadAguardandoDocs(1), semEmail)

	// Email errado num lead existente é recusa, não inexistência.
	rec := doJSON(f.handler.VerifyAccess, http.MethodPost, "/api/leads/1/access",
		map[string]string{"id": "1"}, nil, map[string]string{"email": "outro@example.pt"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	// Lead ainda sem email confirmado também não entra.
	rec = doJSON(f.handler.VerifyAccess, http.MethodPost, "/api/leads/2/access",
		map[string]string{"id": "2"}, nil, map[string]string{"email": "lead@example.pt"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Só o id desconhecido dá 404.
	rec = doJSON(f.handler.VerifyAccess, http.MethodPost, "/api/leads/99/access",
		map[string]string{"id": "99"}, nil, map[string]string{"email": "lead@example.pt"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(f.handler.VerifyAccess, http.MethodPost, "/api/leads/1/access",
		map[string]string{"id": "1"}, nil, map[string]string{"email": "lead@example.pt"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeadRGPDSemPDFGuardado(t *testing.T) {
	f := newHandlerFixture(t, leadAguardandoDocs(1))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/1/rgpd", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.LeadRGPD(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	// Com o PDF guardado passa a ser servido.
	require.NoError(t, f.handler.storage.SaveGestoraRGPD(7, []byte("%PDF-1.4 consentimento")))
	rec = httptest.NewRecorder()
	f.handler.LeadRGPD(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestGetProfileRGPDSemPDFGuardado(t *testing.T) {
	f := newHandlerFixture(t)
	sess := &session.Session{Identity: session.Identity{Role: session.RoleGestora, GestoraID: 7}}

	rec := doJSON(f.handler.GetProfileRGPD, http.MethodGet, "/api/dashboard/profile/rgpd",
		nil, sess, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestSemDocsSoEmRecolha(t *testing.T) {
	l := leadAguardandoDocs(1)
	l.EstadoDocs = lead.EstadoCreditoAprovado
	f := newHandlerFixture(t, l)

	rec := doJSON(f.handler.SemDocs, http.MethodPost, "/api/leads/1/sem-docs",
		map[string]string{"id": "1"}, nil, map[string]string{"email": "lead@example.pt"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmEmailCodigoInvalido(t *testing.T) {
	l := leadAguardandoDocs(1)
	code := "123456"
	now := time.Now()
	pending := "novo@example.pt"
	l.PendingEmail = &pending
	l.EmailVerificationCode = &code
	l.EmailVerificationSentAt = &now
	f := newHandlerFixture(t, l)

	rec := doJSON(f.handler.ConfirmEmail, http.MethodPost, "/api/leads/1/confirm-email",
		map[string]string{"id": "1"}, nil, map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(f.handler.ConfirmEmail, http.MethodPost, "/api/leads/1/confirm-email",
		map[string]string{"id": "1"}, nil, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.store.leads[1].Email)
	assert.Equal(t, pending, *f.store.leads[1].Email)
}

func TestDashboardDeleteLeadLimpaFicheiros(t *testing.T) {
	l := leadAguardandoDocs(1)
	f := newHandlerFixture(t, l)
	_, err := f.handler.storage.SaveDocument(l.ID, docs.CartaoResidencia, []byte("x"), "doc.pdf")
	require.NoError(t, err)

	rec := doJSON(f.handler.DashboardDeleteLead, http.MethodDelete, "/api/dashboard/leads/1",
		map[string]string{"id": "1"}, adminSession(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	_, okLead := f.store.leads[1]
	assert.False(t, okLead)

	list, err := f.handler.storage.ListDocuments(l.ID)
	require.NoError(t, err)
	for k, d := range list {
		assert.False(t, d.Uploaded, fmt.Sprintf("documento %s ainda em disco", k))
	}
}

type stubFAQStore struct {
	faq.Store
	respostas []*faq.Resposta
}

func (s *stubFAQStore) ListRespostas(context.Context, int64) ([]*faq.Resposta, error) {
	return s.respostas, nil
}

func TestForwardRespostaWhatsapp(t *testing.T) {
	type pedido struct {
		path string
		body map[string]string
	}
	var pedidos []pedido
	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		pedidos = append(pedidos, pedido{path: r.URL.Path, body: body})
	}))
	defer bridge.Close()

	texto := "Posso amortizar antecipadamente?"
	contacto := "+351 911 222 333"
	resposta := "Sim, pode."
	repo := &stubFAQStore{respostas: []*faq.Resposta{
		{PerguntaID: 3, GestoraID: 9, Texto: &resposta},
		{PerguntaID: 3, GestoraID: 7, TemAudio: true},
	}}
	h := &Handler{
		cfg:  &config.Config{AppURL: "https://app.example.pt", EvoSecret: "segredo"},
		faqs: faq.NewService(repo, nil, nil, zerolog.Nop()),
		evo:  evo.New(bridge.URL, "segredo"),
	}

	pergunta := &faq.Pergunta{ID: 3, Texto: texto, ContactoWhatsapp: &contacto}
	h.forwardRespostaWhatsapp(context.Background(), pergunta, "Ana")

	require.Len(t, pedidos, 2)
	assert.Equal(t, "/api/internal/send-text", pedidos[0].path)
	assert.Equal(t, "351911222333", pedidos[0].body["number"])
	assert.Contains(t, pedidos[0].body["text"], "Ana respondeu sua dúvida")
	assert.Contains(t, pedidos[0].body["text"], texto)

	// Só a resposta com áudio é reencaminhada, pelo URL interno com token.
	assert.Equal(t, "/api/internal/send-audio", pedidos[1].path)
	assert.Equal(t, "351911222333", pedidos[1].body["number"])
	assert.Equal(t, "https://app.example.pt/api/internal/faq-audio/3/7?token=segredo",
		pedidos[1].body["audio_url"])
}
