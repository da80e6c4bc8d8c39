package gestora

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/creditohabitacao/leads-api/internal/auth"
)

var (
	// ErrInvalidCredentials cobre email desconhecido e palavra-passe errada.
	ErrInvalidCredentials = errors.New("email ou palavra-passe incorretos")
	// ErrPasswordNotSet sinaliza primeira entrada sem palavra-passe definida.
	ErrPasswordNotSet = errors.New("palavra-passe ainda não definida")
	// ErrResetTokenInvalid cobre token desconhecido ou expirado.
	ErrResetTokenInvalid = errors.New("link inválido ou expirado")
)

// Store abstrai o repositório para facilitar testes do serviço.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Gestora, error)
	GetByEmail(ctx context.Context, email string) (*Gestora, error)
	GetByResetToken(ctx context.Context, token string) (*Gestora, error)
	List(ctx context.Context) ([]WithLeadCount, error)
	NextForLead(ctx context.Context) (*Gestora, error)
	LegacyForEmail(ctx context.Context, email string) (*Gestora, error)
	Create(ctx context.Context, input CreateInput) (*Gestora, error)
	Update(ctx context.Context, id int64, input UpdateInput) error
	Delete(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, hash string) error
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
}

// Service concentra regras de negócio sobre gestoras: autenticação,
// redefinição de palavra-passe e a política de atribuição de leads.
type Service struct {
	repo Store
}

// NewService cria o serviço de gestoras.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Repo expõe o store subjacente para consultas simples dos handlers.
func (s *Service) Repo() Store {
	return s.repo
}

// GetByID delega no store; conveniência para quem só recebe o Service.
func (s *Service) GetByID(ctx context.Context, id int64) (*Gestora, error) {
	return s.repo.GetByID(ctx, id)
}

// PickForLead escolhe a gestora para um lead: o mapeamento legado tem
// precedência; na falta dele vale a gestora ativa com menos leads.
// Devolve ErrNoneActive quando não há candidata (o chamador decide se
// isso é fatal).
func (s *Service) PickForLead(ctx context.Context, leadEmail string) (*Gestora, error) {
	if strings.TrimSpace(leadEmail) != "" {
		legacy, err := s.repo.LegacyForEmail(ctx, leadEmail)
		if err != nil {
			return nil, err
		}
		if legacy != nil {
			return legacy, nil
		}
	}
	return s.repo.NextForLead(ctx)
}

// Authenticate valida email+palavra-passe de uma gestora.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Gestora, error) {
	g, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !g.HasPassword() {
		return nil, ErrPasswordNotSet
	}
	ok, err := auth.Verify(password, *g.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return g, nil
}

// StartPasswordReset emite um token de redefinição com validade de uma
// hora. Emails desconhecidos devolvem (nil, "") sem erro para não revelar
// contas existentes. Gestoras inativas podem redefinir na mesma; o estado
// ativo só controla a receção de novos leads.
func (s *Service) StartPasswordReset(ctx context.Context, email string) (*Gestora, string, error) {
	g, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.SetResetToken(ctx, g.ID, token, time.Now().Add(auth.ResetTokenTTL)); err != nil {
		return nil, "", err
	}
	return g, token, nil
}

// ResetPassword troca a palavra-passe usando um token válido; o token é
// consumido na mesma escrita.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	g, err := s.repo.GetByResetToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, g.ID, hash)
}

// ChangePassword troca a palavra-passe exigindo a atual.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, newPassword string) error {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !g.HasPassword() {
		return ErrInvalidCredentials
	}
	ok, err := auth.Verify(current, *g.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := auth.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, g.ID, hash)
}
