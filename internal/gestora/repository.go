package gestora

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditohabitacao/leads-api/internal/db"
	"github.com/creditohabitacao/leads-api/internal/util"
)

const gestoraColumns = `id, nome, email, email_para_leads, whatsapp, foto_perfil, boas_vindas, ativo, password_hash, created_at, updated_at`

// Repository provê acesso à tabela de gestoras e ao mapeamento legado.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanGestora(row pgx.Row) (*Gestora, error) {
	var g Gestora
	err := row.Scan(&g.ID, &g.Nome, &g.Email, &g.EmailParaLeads, &g.Whatsapp,
		&g.FotoPerfil, &g.BoasVindas, &g.Ativo, &g.PasswordHash, &g.CriadoEm, &g.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// GetByID busca uma gestora pelo id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Gestora, error) {
	query := `SELECT ` + gestoraColumns + ` FROM gestoras WHERE id = $1`
	return scanGestora(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail busca uma gestora pelo email de login.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Gestora, error) {
	query := `SELECT ` + gestoraColumns + ` FROM gestoras WHERE email = $1`
	return scanGestora(r.pool.QueryRow(ctx, query, util.NormalizeEmail(email)))
}

// GetByResetToken busca por token de redefinição ainda válido; a expiração
// é verificada na própria consulta.
func (r *Repository) GetByResetToken(ctx context.Context, token string) (*Gestora, error) {
	query := `SELECT ` + gestoraColumns + ` FROM gestoras
        WHERE password_reset_token = $1 AND password_reset_expires_at > now()`
	return scanGestora(r.pool.QueryRow(ctx, query, token))
}

// List devolve todas as gestoras com a contagem de leads atribuídos.
func (r *Repository) List(ctx context.Context) ([]WithLeadCount, error) {
	const query = `
        SELECT g.id, g.nome, g.email, g.email_para_leads, g.whatsapp, g.foto_perfil,
               g.boas_vindas, g.ativo, g.password_hash, g.created_at, g.updated_at,
               COUNT(l.id) AS lead_count
        FROM gestoras g
        LEFT JOIN leads l ON l.gestora_id = g.id
        GROUP BY g.id
        ORDER BY g.id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WithLeadCount
	for rows.Next() {
		var g WithLeadCount
		if err := rows.Scan(&g.ID, &g.Nome, &g.Email, &g.EmailParaLeads, &g.Whatsapp,
			&g.FotoPerfil, &g.BoasVindas, &g.Ativo, &g.PasswordHash, &g.CriadoEm,
			&g.AtualizadoEm, &g.LeadCount); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// NextForLead devolve a gestora ativa com menos leads atribuídos; empates
// resolvem-se pelo menor id, o que torna a escolha determinística.
func (r *Repository) NextForLead(ctx context.Context) (*Gestora, error) {
	const query = `
        SELECT g.id, g.nome, g.email, g.email_para_leads, g.whatsapp, g.foto_perfil,
               g.boas_vindas, g.ativo, g.password_hash, g.created_at, g.updated_at
        FROM gestoras g
        LEFT JOIN leads l ON l.gestora_id = g.id
        WHERE g.ativo
        GROUP BY g.id
        ORDER BY COUNT(l.id) ASC, g.id ASC
        LIMIT 1`

	g, err := scanGestora(r.pool.QueryRow(ctx, query))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoneActive
	}
	return g, err
}

// LegacyForEmail consulta o mapeamento importado do sistema anterior. O
// JOIN garante que um mapeamento para uma gestora entretanto removida não
// devolve nada, caindo o chamador na política por carga.
func (r *Repository) LegacyForEmail(ctx context.Context, email string) (*Gestora, error) {
	const query = `
        SELECT g.id, g.nome, g.email, g.email_para_leads, g.whatsapp, g.foto_perfil,
               g.boas_vindas, g.ativo, g.password_hash, g.created_at, g.updated_at
        FROM legacy_gestora_map m
        JOIN gestoras g ON g.id = m.gestora_id
        WHERE m.email = $1`

	g, err := scanGestora(r.pool.QueryRow(ctx, query, util.NormalizeEmail(email)))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return g, err
}

// Create insere uma nova gestora.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Gestora, error) {
	const query = `
        INSERT INTO gestoras (nome, email, email_para_leads, whatsapp, foto_perfil, boas_vindas, ativo, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + gestoraColumns

	return scanGestora(r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		util.NormalizeEmail(input.Email),
		input.EmailParaLeads,
		util.DigitsOnly(input.Whatsapp),
		input.FotoPerfil,
		input.BoasVindas,
		input.Ativo,
		input.PasswordHash,
	))
}

// Update aplica atualização parcial; apenas campos não nil são escritos.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) error {
	setParts := []string{}
	args := []any{}
	idx := 1

	add := func(column string, value any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if input.Nome != nil {
		add("nome", strings.TrimSpace(*input.Nome))
	}
	if input.Email != nil {
		add("email", util.NormalizeEmail(*input.Email))
	}
	if input.EmailParaLeads != nil {
		if strings.TrimSpace(*input.EmailParaLeads) == "" {
			setParts = append(setParts, "email_para_leads = NULL")
		} else {
			add("email_para_leads", util.NormalizeEmail(*input.EmailParaLeads))
		}
	}
	if input.Whatsapp != nil {
		add("whatsapp", util.DigitsOnly(*input.Whatsapp))
	}
	if input.FotoPerfil != nil {
		add("foto_perfil", *input.FotoPerfil)
	}
	if input.BoasVindas != nil {
		if strings.TrimSpace(*input.BoasVindas) == "" {
			setParts = append(setParts, "boas_vindas = NULL")
		} else {
			add("boas_vindas", strings.TrimSpace(*input.BoasVindas))
		}
	}
	if input.Ativo != nil {
		add("ativo", *input.Ativo)
	}

	if len(setParts) == 0 {
		return nil
	}
	setParts = append(setParts, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE gestoras SET %s WHERE id = $%d", strings.Join(setParts, ", "), idx)

	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		// O nome é denormalizado nos leads; um rename tem de propagar.
		if input.Nome != nil {
			_, err = tx.Exec(ctx,
				`UPDATE leads SET gestora_nome = $1, updated_at = now() WHERE gestora_id = $2`,
				strings.TrimSpace(*input.Nome), id)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete remove a gestora, desvinculando antes os leads atribuídos. Os
// leads nunca são apagados; gestora_id e gestora_nome ficam NULL.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE leads SET gestora_id = NULL, gestora_nome = NULL, updated_at = now() WHERE gestora_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM gestoras WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetPassword grava o hash e limpa qualquer token de redefinição ativo.
func (r *Repository) SetPassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE gestoras
        SET password_hash = $1, password_reset_token = NULL, password_reset_expires_at = NULL, updated_at = now()
        WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken regista o token único de redefinição com expiração.
func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE gestoras
        SET password_reset_token = $1, password_reset_expires_at = $2, updated_at = now()
        WHERE id = $3`, token, expiresAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
