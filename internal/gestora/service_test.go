package gestora

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditohabitacao/leads-api/internal/auth"
)

type stubRepo struct {
	byID    map[int64]*Gestora
	byEmail map[string]*Gestora
	legacy  map[string]*Gestora
	next    *Gestora

	tokens    map[string]int64 // token -> gestora id
	passwords map[int64]string // id -> hash
}

func newStubRepo(gestoras ...*Gestora) *stubRepo {
	r := &stubRepo{
		byID:      map[int64]*Gestora{},
		byEmail:   map[string]*Gestora{},
		legacy:    map[string]*Gestora{},
		tokens:    map[string]int64{},
		passwords: map[int64]string{},
	}
	for _, g := range gestoras {
		r.byID[g.ID] = g
		r.byEmail[strings.ToLower(g.Email)] = g
		if g.PasswordHash != nil {
			r.passwords[g.ID] = *g.PasswordHash
		}
	}
	return r
}

func (r *stubRepo) GetByID(_ context.Context, id int64) (*Gestora, error) {
	g, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (r *stubRepo) GetByEmail(_ context.Context, email string) (*Gestora, error) {
	g, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (r *stubRepo) GetByResetToken(_ context.Context, token string) (*Gestora, error) {
	id, ok := r.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *stubRepo) List(context.Context) ([]WithLeadCount, error) { return nil, nil }

func (r *stubRepo) NextForLead(context.Context) (*Gestora, error) {
	if r.next == nil {
		return nil, ErrNoneActive
	}
	return r.next, nil
}

func (r *stubRepo) LegacyForEmail(_ context.Context, email string) (*Gestora, error) {
	return r.legacy[strings.ToLower(email)], nil
}

func (r *stubRepo) Create(_ context.Context, in CreateInput) (*Gestora, error) {
	g := &Gestora{ID: int64(len(r.byID) + 1), Nome: in.Nome, Email: in.Email}
	r.byID[g.ID] = g
	return g, nil
}

func (r *stubRepo) Update(context.Context, int64, UpdateInput) error { return nil }
func (r *stubRepo) Delete(context.Context, int64) error              { return nil }

func (r *stubRepo) SetPassword(_ context.Context, id int64, hash string) error {
	r.passwords[id] = hash
	g := r.byID[id]
	g.PasswordHash = &hash
	for t, tid := range r.tokens {
		if tid == id {
			delete(r.tokens, t)
		}
	}
	return nil
}

func (r *stubRepo) SetResetToken(_ context.Context, id int64, token string, _ time.Time) error {
	r.tokens[token] = id
	return nil
}

func withHash(t *testing.T, g *Gestora, password string) *Gestora {
	t.Helper()
	hash, err := auth.Hash(password)
	require.NoError(t, err)
	g.PasswordHash = &hash
	return g
}

func TestPickForLead(t *testing.T) {
	marta := &Gestora{ID: 1, Nome: "Marta", Email: "marta@example.pt"}
	sofia := &Gestora{ID: 2, Nome: "Sofia", Email: "sofia@example.pt"}

	t.Run("mapeamento legado tem precedência", func(t *testing.T) {
		repo := newStubRepo(marta, sofia)
		repo.next = sofia
		repo.legacy["antigo@example.pt"] = marta
		svc := NewService(repo)

		g, err := svc.PickForLead(context.Background(), "antigo@example.pt")
		require.NoError(t, err)
		assert.Equal(t, int64(1), g.ID)
	})

	t.Run("sem mapeamento cai na menos carregada", func(t *testing.T) {
		repo := newStubRepo(marta, sofia)
		repo.next = sofia
		svc := NewService(repo)

		g, err := svc.PickForLead(context.Background(), "novo@example.pt")
		require.NoError(t, err)
		assert.Equal(t, int64(2), g.ID)
	})

	t.Run("email vazio nunca consulta o mapeamento", func(t *testing.T) {
		repo := newStubRepo(marta)
		repo.next = marta
		repo.legacy[""] = &Gestora{ID: 99}
		svc := NewService(repo)

		g, err := svc.PickForLead(context.Background(), "  ")
		require.NoError(t, err)
		assert.Equal(t, int64(1), g.ID)
	})

	t.Run("sem gestora ativa devolve ErrNoneActive", func(t *testing.T) {
		svc := NewService(newStubRepo(marta))

		_, err := svc.PickForLead(context.Background(), "novo@example.pt")
		assert.ErrorIs(t, err, ErrNoneActive)
	})
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newStubRepo(
		withHash(t, &Gestora{ID: 1, Nome: "Marta", Email: "marta@example.pt"}, "segredo1"),
		&Gestora{ID: 2, Nome: "Sofia", Email: "sofia@example.pt"},
	))

	t.Run("credenciais corretas", func(t *testing.T) {
		g, err := svc.Authenticate(context.Background(), "marta@example.pt", "segredo1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), g.ID)
	})

	t.Run("palavra-passe errada", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "marta@example.pt", "errada")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email desconhecido", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "ninguem@example.pt", "segredo1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("conta sem palavra-passe definida", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "sofia@example.pt", "qualquer")
		assert.ErrorIs(t, err, ErrPasswordNotSet)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Run("emite token para email conhecido", func(t *testing.T) {
		repo := newStubRepo(&Gestora{ID: 1, Nome: "Marta", Email: "marta@example.pt"})
		svc := NewService(repo)

		g, token, err := svc.StartPasswordReset(context.Background(), "marta@example.pt")
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.NotEmpty(t, token)
		assert.Equal(t, int64(1), repo.tokens[token])
	})

	t.Run("email desconhecido não devolve erro nem token", func(t *testing.T) {
		svc := NewService(newStubRepo())

		g, token, err := svc.StartPasswordReset(context.Background(), "ninguem@example.pt")
		require.NoError(t, err)
		assert.Nil(t, g)
		assert.Empty(t, token)
	})

	t.Run("token válido define password e é consumido", func(t *testing.T) {
		repo := newStubRepo(&Gestora{ID: 1, Nome: "Marta", Email: "marta@example.pt"})
		svc := NewService(repo)

		_, token, err := svc.StartPasswordReset(context.Background(), "marta@example.pt")
		require.NoError(t, err)

		require.NoError(t, svc.ResetPassword(context.Background(), token, "novosegredo"))
		_, err = svc.Authenticate(context.Background(), "marta@example.pt", "novosegredo")
		assert.NoError(t, err)

		err = svc.ResetPassword(context.Background(), token, "outra")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	t.Run("token desconhecido", func(t *testing.T) {
		svc := NewService(newStubRepo())
		err := svc.ResetPassword(context.Background(), "nada", "novosegredo")
		assert.ErrorIs(t, err, ErrResetTokenInvalid)
	})
}

func TestChangePassword(t *testing.T) {
	repo := newStubRepo(withHash(t, &Gestora{ID: 1, Nome: "Marta", Email: "marta@example.pt"}, "atual123"))
	svc := NewService(repo)

	err := svc.ChangePassword(context.Background(), 1, "errada", "nova1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(context.Background(), 1, "atual123", "nova1234"))
	_, err = svc.Authenticate(context.Background(), "marta@example.pt", "nova1234")
	assert.NoError(t, err)
}
