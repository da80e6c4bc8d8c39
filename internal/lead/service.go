package lead

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/creditohabitacao/leads-api/internal/docs"
	"github.com/creditohabitacao/leads-api/internal/gestora"
	"github.com/creditohabitacao/leads-api/internal/mail"
)

// CodeTTL é a validade do código de verificação de email.
const CodeTTL = 15 * time.Minute

// MissingDocumentsError lista os documentos obrigatórios em falta num
// pedido de envio.
type MissingDocumentsError struct {
	Keys []docs.Key
}

func (e *MissingDocumentsError) Error() string {
	labels := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		labels = append(labels, docs.Label(k))
	}
	return "faltam documentos obrigatórios: " + strings.Join(labels, ", ")
}

// Labels devolve os rótulos legíveis dos documentos em falta.
func (e *MissingDocumentsError) Labels() []string {
	labels := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		labels = append(labels, docs.Label(k))
	}
	return labels
}

// Store abstrai o repositório de leads para os testes do serviço.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Lead, error)
	ListAll(ctx context.Context) ([]*Lead, error)
	ListByGestora(ctx context.Context, gestoraID int64) ([]*Lead, error)
	ListForRafa(ctx context.Context) ([]*Summary, error)
	CountForRafa(ctx context.Context) (int, error)
	SetEmailVerification(ctx context.Context, id int64, nome, email, code string) error
	ConfirmEmail(ctx context.Context, id int64) (bool, error)
	UpdateEstadoDocs(ctx context.Context, id int64, estado EstadoDocs) error
	MarkDocsEnviados(ctx context.Context, id int64) error
	AssignGestora(ctx context.Context, id int64, gestoraID *int64, gestoraNome *string) error
	UpdateNome(ctx context.Context, id int64, nome string) error
	SetNoCode(ctx context.Context, id int64) error
	AdminUpdate(ctx context.Context, id int64, in AdminUpdateInput) error
	Delete(ctx context.Context, id int64) error
}

// GestoraDirectory é a fatia do serviço de gestoras que o fluxo de leads
// precisa: resolver a atribuída e escolher uma nova.
type GestoraDirectory interface {
	GetByID(ctx context.Context, id int64) (*gestora.Gestora, error)
	PickForLead(ctx context.Context, leadEmail string) (*gestora.Gestora, error)
}

// Mailer é a fatia do emissor de email usada pelo fluxo de leads.
type Mailer interface {
	Configured() bool
	SendVerificationCode(ctx context.Context, to, nome, code string) error
	SendDocumentPackage(ctx context.Context, in mail.PackageInput) error
}

// Archiver limpa os ficheiros temporários de um lead depois do envio.
type Archiver interface {
	DeleteLead(leadID int64) error
}

// Service orquestra a verificação de email, a atribuição de gestora e o
// envio do pacote de documentos.
type Service struct {
	repo     Store
	gestoras GestoraDirectory
	mailer   Mailer
	storage  Archiver
	log      zerolog.Logger

	// fallback de destino quando o lead não tem gestora e não há nenhuma
	// ativa para atribuir
	fallbackEmail string

	now     func() time.Time
	genCode func() string
}

// NewService cria o serviço de leads.
func NewService(repo Store, gestoras GestoraDirectory, mailer Mailer, storage Archiver, fallbackEmail string, log zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		gestoras:      gestoras,
		mailer:        mailer,
		storage:       storage,
		log:           log,
		fallbackEmail: strings.TrimSpace(fallbackEmail),
		now:           time.Now,
		genCode:       generateCode,
	}
}

// Repo expõe o store subjacente para consultas simples dos handlers.
func (s *Service) Repo() Store {
	return s.repo
}

// generateCode devolve um código uniforme em [100000, 999999].
func generateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand só falha se o sistema estiver fundamentalmente
		// avariado; nesse caso o relógio serve de último recurso
		return fmt.Sprintf("%06d", time.Now().UnixNano()%900000+100000)
	}
	return fmt.Sprintf("%d", n.Int64()+100000)
}

// RequestVerification guarda nome e email como pendentes e envia o
// código. Um lead com email já confirmado não pode reentrar no fluxo.
// Se o envio falhar o estado pendente fica gravado na mesma, mas o erro
// sobe para o chamador responder com falha.
func (s *Service) RequestVerification(ctx context.Context, id int64, nome, email string) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.HasEmail() {
		return ErrAlreadyVerified
	}

	code := s.genCode()
	if err := s.repo.SetEmailVerification(ctx, id, strings.TrimSpace(nome), email, code); err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(ctx, email, nome, code); err != nil {
		return fmt.Errorf("enviar código de verificação: %w", err)
	}
	return nil
}

// ConfirmCode valida o código e, se correto e dentro do prazo, promove o
// email pendente a confirmado, avança o lead para aguardando_docs e,
// se ainda não tem gestora, atribui uma.
func (s *Service) ConfirmCode(ctx context.Context, id int64, code string) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.EmailVerificationCode == nil || l.EmailVerificationSentAt == nil {
		return nil, ErrCodeInvalid
	}
	if strings.TrimSpace(code) != *l.EmailVerificationCode {
		return nil, ErrCodeInvalid
	}
	if s.now().Sub(*l.EmailVerificationSentAt) > CodeTTL {
		return nil, ErrCodeInvalid
	}

	ok, err := s.repo.ConfirmEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// alguém confirmou ou limpou a verificação entretanto
		return nil, ErrCodeInvalid
	}
	if err := s.repo.UpdateEstadoDocs(ctx, id, EstadoAguardandoDocs); err != nil {
		return nil, err
	}

	l, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// atribuição é melhor-esforço: uma falha aqui não desfaz a
	// confirmação, o lead fica por atribuir até intervenção manual
	if !l.HasGestora() {
		email := ""
		if l.Email != nil {
			email = *l.Email
		}
		g, err := s.gestoras.PickForLead(ctx, email)
		switch {
		case err == nil:
			if err := s.repo.AssignGestora(ctx, id, &g.ID, &g.Nome); err != nil {
				s.log.Error().Err(err).Int64("lead_id", id).Msg("falha a atribuir gestora")
			} else {
				l.GestoraID = &g.ID
				l.GestoraNome = &g.Nome
			}
		case errors.Is(err, gestora.ErrNoneActive):
			s.log.Warn().Int64("lead_id", id).Msg("sem gestora ativa para atribuir")
		default:
			s.log.Error().Err(err).Int64("lead_id", id).Msg("falha a escolher gestora")
		}
	}

	return l, nil
}

// ReportNoCode marca o lead como à espera de ajuda humana porque o
// código de verificação nunca chegou.
func (s *Service) ReportNoCode(ctx context.Context, id int64) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if l.HasEmail() {
		return ErrAlreadyVerified
	}
	return s.repo.SetNoCode(ctx, id)
}

// VerifyAccess valida o par id+email usado pelas rotas públicas de
// documentos: o email tem de bater com o confirmado do lead.
func (s *Service) VerifyAccess(ctx context.Context, id int64, email string) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.HasEmail() {
		return nil, ErrEmailNotVerified
	}
	if !strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(*l.Email)) {
		return nil, ErrAccessDenied
	}
	return l, nil
}

// PackageRequest é o pedido de envio do pacote de documentos.
type PackageRequest struct {
	Vinculo       string
	Financiamento bool
	Resumo        []mail.ResumoItem
	Mensagem      string
	Files         map[docs.Key]mail.Attachment
}

// SendDocuments valida o conjunto obrigatório, resolve o destino e envia
// o pacote por email. Só depois do envio bem sucedido o lead é marcado
// como docs_enviados e os ficheiros temporários são limpos.
func (s *Service) SendDocuments(ctx context.Context, l *Lead, req PackageRequest) error {
	if l.DocsEnviados || l.EstadoDocs == EstadoDocsEnviados {
		return ErrAlreadySent
	}
	if !s.mailer.Configured() {
		return mail.ErrNotConfigured
	}

	required := docs.Required(req.Vinculo, req.Financiamento)
	have := make(map[docs.Key]bool, len(req.Files))
	for k := range req.Files {
		have[k] = true
	}
	if missing := docs.Missing(required, have); len(missing) > 0 {
		return &MissingDocumentsError{Keys: missing}
	}

	dest, err := s.resolveDestination(ctx, l)
	if err != nil {
		return err
	}

	atts := make([]mail.Attachment, 0, len(req.Files))
	for _, k := range docs.AllKeys() {
		if f, ok := req.Files[k]; ok {
			atts = append(atts, f)
		}
	}

	nome := ""
	if l.Nome != nil {
		nome = *l.Nome
	}
	in := mail.PackageInput{
		To:          dest,
		LeadNome:    nome,
		LeadEmail:   *l.Email,
		Whatsapp:    l.WhatsappNumber,
		Resumo:      req.Resumo,
		Mensagem:    req.Mensagem,
		Attachments: atts,
	}
	if l.Email != nil {
		in.CC = *l.Email
		in.ReplyTo = *l.Email
	}
	if err := s.mailer.SendDocumentPackage(ctx, in); err != nil {
		return err
	}

	if err := s.repo.MarkDocsEnviados(ctx, l.ID); err != nil {
		s.log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a marcar docs enviados")
	}
	if s.storage != nil {
		if err := s.storage.DeleteLead(l.ID); err != nil {
			s.log.Warn().Err(err).Int64("lead_id", l.ID).Msg("falha a limpar ficheiros do lead")
		}
	}
	return nil
}

// resolveDestination devolve o email de destino do pacote: a gestora
// atribuída, senão uma escolhida agora (e atribuída), senão o fallback
// de configuração.
func (s *Service) resolveDestination(ctx context.Context, l *Lead) (string, error) {
	if l.HasGestora() {
		g, err := s.gestoras.GetByID(ctx, *l.GestoraID)
		if err == nil {
			return g.ContactEmail(), nil
		}
		if !errors.Is(err, gestora.ErrNotFound) {
			return "", err
		}
		// gestora apagada entretanto; cai na escolha normal
	}

	email := ""
	if l.Email != nil {
		email = *l.Email
	}
	g, err := s.gestoras.PickForLead(ctx, email)
	if err == nil {
		if err := s.repo.AssignGestora(ctx, l.ID, &g.ID, &g.Nome); err != nil {
			s.log.Error().Err(err).Int64("lead_id", l.ID).Msg("falha a atribuir gestora no envio")
		}
		return g.ContactEmail(), nil
	}
	if !errors.Is(err, gestora.ErrNoneActive) {
		return "", err
	}

	if s.fallbackEmail == "" {
		return "", mail.ErrNotConfigured
	}
	return s.fallbackEmail, nil
}

// AdminUpdate aplica a atualização parcial do dashboard, sincronizando
// gestora_nome quando gestora_id muda sem nome explícito.
func (s *Service) AdminUpdate(ctx context.Context, id int64, in AdminUpdateInput) error {
	if in.EstadoDocs != nil && !in.EstadoDocs.Valid() {
		return fmt.Errorf("estado_docs inválido: %q", *in.EstadoDocs)
	}
	if !in.ClearGestora && in.GestoraID != nil && in.GestoraNome == nil {
		g, err := s.gestoras.GetByID(ctx, *in.GestoraID)
		if err != nil {
			return err
		}
		in.GestoraNome = &g.Nome
	}
	return s.repo.AdminUpdate(ctx, id, in)
}
