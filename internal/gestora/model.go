package gestora

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound é retornado quando nenhuma gestora é encontrada.
	ErrNotFound = errors.New("gestora não encontrada")
	// ErrNoneActive indica que não há gestoras ativas para atribuição.
	ErrNoneActive = errors.New("nenhuma gestora ativa")
)

// Gestora representa uma gestora de crédito que recebe leads e responde
// a dúvidas no FAQ.
type Gestora struct {
	ID             int64      `json:"id"`
	Nome           string     `json:"nome"`
	Email          string     `json:"email"`
	EmailParaLeads *string    `json:"email_para_leads,omitempty"`
	Whatsapp       string     `json:"whatsapp"`
	FotoPerfil     *string    `json:"foto_perfil,omitempty"`
	BoasVindas     *string    `json:"boas_vindas,omitempty"`
	Ativo          bool       `json:"ativo"`
	PasswordHash   *string    `json:"-"`
	CriadoEm       time.Time  `json:"created_at"`
	AtualizadoEm   time.Time  `json:"updated_at"`
}

// WithLeadCount agrega a gestora com o número de leads atribuídos.
type WithLeadCount struct {
	Gestora
	LeadCount int64 `json:"lead_count"`
}

// ContactEmail devolve o email público para leads, com fallback para o
// email de login.
func (g *Gestora) ContactEmail() string {
	if g.EmailParaLeads != nil && strings.TrimSpace(*g.EmailParaLeads) != "" {
		return strings.TrimSpace(*g.EmailParaLeads)
	}
	return g.Email
}

// HasPassword indica se a gestora já definiu palavra-passe.
func (g *Gestora) HasPassword() bool {
	return g.PasswordHash != nil && *g.PasswordHash != ""
}

// CreateInput encapsula campos para criação de gestora.
type CreateInput struct {
	Nome           string
	Email          string
	EmailParaLeads *string
	Whatsapp       string
	FotoPerfil     *string
	BoasVindas     *string
	Ativo          bool
	PasswordHash   *string
}

// UpdateInput permite atualização parcial; campos nil não são tocados.
type UpdateInput struct {
	Nome           *string
	Email          *string
	EmailParaLeads *string
	Whatsapp       *string
	FotoPerfil     *string
	BoasVindas     *string
	Ativo          *bool
}
