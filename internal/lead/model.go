package lead

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound é retornado quando o lead não existe.
	ErrNotFound = errors.New("lead não encontrado")
	// ErrAlreadyVerified impede reentrada no fluxo de verificação.
	ErrAlreadyVerified = errors.New("este lead já tem email confirmado")
	// ErrCodeInvalid cobre código errado e código expirado; o chamador não
	// distingue os dois casos.
	ErrCodeInvalid = errors.New("código inválido ou expirado")
	// ErrAlreadySent bloqueia reenvio depois de docs_enviados.
	ErrAlreadySent = errors.New("já enviaste os documentos; não é possível reenviar")
	// ErrEmailNotVerified bloqueia rotas de documentos antes da confirmação.
	ErrEmailNotVerified = errors.New("confirma primeiro o teu email")
	// ErrAccessDenied é o par id+email que não confere nas rotas públicas.
	ErrAccessDenied = errors.New("email incorreto")
)

// EstadoDocs é o estado do ciclo de recolha de documentos de um lead.
// Valores fora deste vocabulário são rejeitados na fronteira.
type EstadoDocs string

const (
	EstadoAguardandoDocs     EstadoDocs = "aguardando_docs"
	EstadoSemDocs            EstadoDocs = "sem_docs"
	EstadoDocsEnviados       EstadoDocs = "docs_enviados"
	EstadoInviavel           EstadoDocs = "inviavel"
	EstadoCreditoAprovado    EstadoDocs = "credito_aprovado"
	EstadoAgendadoEscritura  EstadoDocs = "agendado_escritura"
	EstadoEscrituraRealizada EstadoDocs = "escritura_realizada"
)

var estadoDocsValues = map[EstadoDocs]struct{}{
	EstadoAguardandoDocs:     {},
	EstadoSemDocs:            {},
	EstadoDocsEnviados:       {},
	EstadoInviavel:           {},
	EstadoCreditoAprovado:    {},
	EstadoAgendadoEscritura:  {},
	EstadoEscrituraRealizada: {},
}

// Valid indica se o valor pertence ao vocabulário conhecido.
func (e EstadoDocs) Valid() bool {
	_, ok := estadoDocsValues[e]
	return ok
}

// AllowsUploadPage indica se a página de upload ainda é acessível — cobre
// também os estados pós-envio, para o lead ver a mensagem de conclusão.
func (e EstadoDocs) AllowsUploadPage() bool {
	return e.Valid()
}

// AcceptsDocuments indica se o lead ainda pode submeter documentos.
func (e EstadoDocs) AcceptsDocuments() bool {
	return e == EstadoAguardandoDocs || e == EstadoSemDocs
}

// ShowsSentMessage indica se o frontend deve mostrar o ecrã de "já enviou".
func (e EstadoDocs) ShowsSentMessage() bool {
	switch e {
	case EstadoDocsEnviados, EstadoInviavel, EstadoCreditoAprovado, EstadoAgendadoEscritura, EstadoEscrituraRealizada:
		return true
	}
	return false
}

// Estados de conversa usados pelo bot; a coluna aceita texto livre, estes
// são apenas os valores que o backend escreve ou filtra.
const (
	ConversaAguardandoEscolha = "aguardando_escolha"
	ConversaFalarComRafa      = "falar_com_rafa"
)

// Lead representa um potencial cliente de crédito habitação.
type Lead struct {
	ID                      int64      `json:"id"`
	WhatsappNumber          string     `json:"whatsapp_number"`
	Nome                    *string    `json:"nome,omitempty"`
	Email                   *string    `json:"email,omitempty"`
	PendingNome             *string    `json:"-"`
	PendingEmail            *string    `json:"-"`
	EmailVerificationCode   *string    `json:"-"`
	EmailVerificationSentAt *time.Time `json:"-"`
	EstadoConversa          *string    `json:"estado_conversa,omitempty"`
	QuerFalarComRafa        bool       `json:"quer_falar_com_rafa"`
	EstadoDocs              EstadoDocs `json:"estado_docs"`
	DocsEnviados            bool       `json:"docs_enviados"`
	DocsEnviadosEm          *time.Time `json:"docs_enviados_em,omitempty"`
	GestoraID               *int64     `json:"gestora_id,omitempty"`
	GestoraNome             *string    `json:"gestora_nome,omitempty"`
	Comentario              *string    `json:"comentario,omitempty"`
	CriadoEm                time.Time  `json:"created_at"`
	AtualizadoEm            time.Time  `json:"updated_at"`
}

// HasEmail indica email confirmado.
func (l *Lead) HasEmail() bool {
	return l.Email != nil && strings.TrimSpace(*l.Email) != ""
}

// HasGestora indica atribuição a uma gestora.
func (l *Lead) HasGestora() bool {
	return l.GestoraID != nil
}

// Summary é a projeção sem dados sensíveis usada nas listas de escalação.
type Summary struct {
	ID             int64     `json:"id"`
	Nome           *string   `json:"nome,omitempty"`
	Email          *string   `json:"email,omitempty"`
	WhatsappNumber string    `json:"whatsapp_number"`
	AtualizadoEm   time.Time `json:"updated_at"`
}

// AdminUpdateInput é a atualização parcial do dashboard; campos nil não
// são tocados. GestoraNome só deve ser preenchido por quem já sincronizou
// o nome — ver Service.AdminUpdate.
type AdminUpdateInput struct {
	Nome             *string
	Email            *string
	EstadoConversa   *string
	QuerFalarComRafa *bool
	EstadoDocs       *EstadoDocs
	Comentario       *string
	GestoraID        *int64
	ClearGestora     bool
	GestoraNome      *string
}
