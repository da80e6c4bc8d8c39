package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indica sessão inexistente ou expirada.
var ErrNotFound = errors.New("sessão não encontrada")

// Papéis suportados pelo dashboard.
const (
	RoleAdmin   = "admin"
	RoleGestora = "gestora"
)

// CookieName é o nome do cookie de sessão do dashboard.
const CookieName = "sessao"

// Identity identifica quem está autenticado numa sessão.
type Identity struct {
	Role      string `json:"role"`
	GestoraID int64  `json:"gestora_id,omitempty"`
	Email     string `json:"email"`
	Nome      string `json:"nome"`
}

// Session é o estado guardado no Redis por sessão do dashboard. Durante
// uma personificação, Impersonator guarda a identidade original do
// admin para poder regressar.
type Session struct {
	Identity
	Impersonator *Identity `json:"impersonator,omitempty"`
}

// IsAdmin considera também o admin a personificar uma gestora.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin || (s.Impersonator != nil && s.Impersonator.Role == RoleAdmin)
}

// Store guarda sessões no Redis com TTL deslizante.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore cria o store de sessões.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(sid string) string {
	return "sessao:" + sid
}

// Create grava uma sessão nova e devolve o identificador para o cookie.
func (s *Store) Create(ctx context.Context, sess Session) (string, error) {
	sid := uuid.NewString()
	if err := s.write(ctx, sid, sess); err != nil {
		return "", err
	}
	return sid, nil
}

func (s *Store) write(ctx context.Context, sid string, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("codificar sessão: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sid), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("gravar sessão: %w", err)
	}
	return nil
}

// Get lê uma sessão e renova o TTL.
func (s *Store) Get(ctx context.Context, sid string) (*Session, error) {
	payload, err := s.rdb.Get(ctx, key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ler sessão: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("descodificar sessão: %w", err)
	}

	// TTL deslizante; a falha da renovação não invalida a leitura
	s.rdb.Expire(ctx, key(sid), s.ttl)
	return &sess, nil
}

// Update substitui o conteúdo de uma sessão existente, mantendo o sid.
func (s *Store) Update(ctx context.Context, sid string, sess Session) error {
	return s.write(ctx, sid, sess)
}

// Delete remove a sessão; remover uma sessão inexistente não é erro.
func (s *Store) Delete(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, key(sid)).Err(); err != nil {
		return fmt.Errorf("apagar sessão: %w", err)
	}
	return nil
}

// TTL expõe a validade configurada, para alinhar o MaxAge do cookie.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
