package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/creditohabitacao/leads-api/internal/config"
)

// ErrNotConfigured indica SMTP por configurar; os chamadores traduzem
// para 503 em vez de fingir que o envio aconteceu.
var ErrNotConfigured = errors.New("smtp não configurado")

// Attachment é um ficheiro a anexar, já em memória.
type Attachment struct {
	Filename string
	Content  []byte
}

// ResumoItem é um par rótulo/valor do resumo da candidatura; a ordem de
// chegada é a ordem no corpo do email.
type ResumoItem struct {
	Label string
	Value string
}

// PackageInput descreve o email com o pacote de documentos de um lead.
type PackageInput struct {
	To          string
	CC          string
	ReplyTo     string
	LeadNome    string
	LeadEmail   string
	Whatsapp    string
	Resumo      []ResumoItem
	Mensagem    string
	Attachments []Attachment
}

// Sender envia email transacional via SMTP.
type Sender struct {
	cfg config.Config
}

func NewSender(cfg config.Config) *Sender {
	return &Sender{cfg: cfg}
}

// Configured indica se há credenciais SMTP utilizáveis.
func (s *Sender) Configured() bool {
	return s.cfg.MailConfigured()
}

func (s *Sender) dialer() *gomail.Dialer {
	return gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPassword)
}

func (s *Sender) send(ctx context.Context, m *gomail.Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer().DialAndSend(m); err != nil {
		return fmt.Errorf("enviar email: %w", err)
	}
	return nil
}

// SendVerificationCode envia o código de 6 dígitos para o email pendente.
func (s *Sender) SendVerificationCode(ctx context.Context, to, nome, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.MailFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "O teu código de verificação")

	saudacao := "Olá"
	if strings.TrimSpace(nome) != "" {
		saudacao = "Olá " + strings.TrimSpace(nome)
	}
	m.SetBody("text/plain", fmt.Sprintf(
		"%s,\n\nO teu código de verificação é: %s\n\nO código expira em 15 minutos.\n\nSe não pediste este código, ignora este email.\n",
		saudacao, code))

	return s.send(ctx, m)
}

// SendDocumentPackage envia os documentos do lead à gestora, com o lead
// em CC e como Reply-To para a gestora responder diretamente.
func (s *Sender) SendDocumentPackage(ctx context.Context, in PackageInput) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.MailFrom)
	m.SetHeader("To", in.To)
	if in.CC != "" {
		m.SetHeader("Cc", in.CC)
	}
	if in.ReplyTo != "" {
		m.SetHeader("Reply-To", in.ReplyTo)
	}
	m.SetHeader("Subject", fmt.Sprintf("Documentos de %s - crédito habitação", in.LeadNome))
	m.SetBody("text/plain", s.packageBody(in))

	for _, att := range in.Attachments {
		content := att.Content
		m.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(content))
			return err
		}))
	}

	return s.send(ctx, m)
}

func (s *Sender) packageBody(in PackageInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Novo pacote de documentos recebido.\n\n")
	fmt.Fprintf(&b, "Nome: %s\n", in.LeadNome)
	fmt.Fprintf(&b, "Email: %s\n", in.LeadEmail)
	if in.Whatsapp != "" {
		fmt.Fprintf(&b, "WhatsApp: %s\n", in.Whatsapp)
	}
	for _, item := range in.Resumo {
		if strings.TrimSpace(item.Value) != "" {
			fmt.Fprintf(&b, "%s: %s\n", item.Label, item.Value)
		}
	}
	if strings.TrimSpace(in.Mensagem) != "" {
		fmt.Fprintf(&b, "\nMensagem do cliente:\n%s\n", in.Mensagem)
	}
	fmt.Fprintf(&b, "\nDocumentos em anexo: %d\n", len(in.Attachments))
	return b.String()
}

// SendPasswordReset envia o link de recuperação de password de gestora.
func (s *Sender) SendPasswordReset(ctx context.Context, to, nome, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.MailFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Recuperação de password")

	saudacao := "Olá"
	if strings.TrimSpace(nome) != "" {
		saudacao = "Olá " + strings.TrimSpace(nome)
	}
	m.SetBody("text/plain", fmt.Sprintf(
		"%s,\n\nPediste a recuperação da tua password. Abre o link para definir uma nova:\n\n%s\n\nO link expira em 1 hora. Se não foste tu, ignora este email.\n",
		saudacao, link))

	return s.send(ctx, m)
}
