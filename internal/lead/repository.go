package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, whatsapp_number, nome, email, pending_nome, pending_email,
	email_verification_code, email_verification_sent_at, estado_conversa,
	quer_falar_com_rafa, estado_docs, docs_enviados, docs_enviados_em,
	gestora_id, gestora_nome, comentario, created_at, updated_at`

// Repository acede à tabela leads.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.WhatsappNumber, &l.Nome, &l.Email, &l.PendingNome, &l.PendingEmail,
		&l.EmailVerificationCode, &l.EmailVerificationSentAt, &l.EstadoConversa,
		&l.QuerFalarComRafa, &l.EstadoDocs, &l.DocsEnviados, &l.DocsEnviadosEm,
		&l.GestoraID, &l.GestoraNome, &l.Comentario, &l.CriadoEm, &l.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return &l, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Lead, error) {
	row := r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// ListAll devolve todos os leads, mais recentes primeiro.
func (r *Repository) ListAll(ctx context.Context) ([]*Lead, error) {
	rows, err := r.db.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listar leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListByGestora devolve só os leads atribuídos à gestora.
func (r *Repository) ListByGestora(ctx context.Context, gestoraID int64) ([]*Lead, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE gestora_id = $1 ORDER BY updated_at DESC`, gestoraID)
	if err != nil {
		return nil, fmt.Errorf("listar leads da gestora: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]*Lead, error) {
	leads := make([]*Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

const rafaFilter = `(quer_falar_com_rafa OR estado_conversa = 'falar_com_rafa')`

// ListForRafa devolve os leads escalados para atendimento humano, sem
// campos sensíveis.
func (r *Repository) ListForRafa(ctx context.Context) ([]*Summary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, nome, email, whatsapp_number, updated_at
		 FROM leads WHERE `+rafaFilter+` ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listar leads escalados: %w", err)
	}
	defer rows.Close()

	out := make([]*Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Nome, &s.Email, &s.WhatsappNumber, &s.AtualizadoEm); err != nil {
			return nil, fmt.Errorf("scan lead escalado: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *Repository) CountForRafa(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+rafaFilter).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("contar leads escalados: %w", err)
	}
	return n, nil
}

// SetEmailVerification grava os dados pendentes e o código, reiniciando o
// relógio de expiração.
func (r *Repository) SetEmailVerification(ctx context.Context, id int64, nome, email, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET pending_nome = $2, pending_email = $3,
			email_verification_code = $4, email_verification_sent_at = now(),
			updated_at = now()
		 WHERE id = $1`,
		id, nome, email, code)
	if err != nil {
		return fmt.Errorf("gravar verificação: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmEmail promove os dados pendentes a confirmados num único UPDATE.
// Devolve false se não havia verificação pendente.
func (r *Repository) ConfirmEmail(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET nome = COALESCE(pending_nome, nome), email = pending_email,
			pending_nome = NULL, pending_email = NULL,
			email_verification_code = NULL, email_verification_sent_at = NULL,
			updated_at = now()
		 WHERE id = $1 AND pending_email IS NOT NULL AND email_verification_code IS NOT NULL`,
		id)
	if err != nil {
		return false, fmt.Errorf("confirmar email: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) UpdateEstadoDocs(ctx context.Context, id int64, estado EstadoDocs) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET estado_docs = $2, updated_at = now() WHERE id = $1`, id, estado)
	if err != nil {
		return fmt.Errorf("atualizar estado_docs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDocsEnviados fecha o ciclo de recolha do lead.
func (r *Repository) MarkDocsEnviados(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET estado_docs = $2, docs_enviados = TRUE,
			docs_enviados_em = now(), updated_at = now()
		 WHERE id = $1`,
		id, EstadoDocsEnviados)
	if err != nil {
		return fmt.Errorf("marcar docs enviados: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignGestora é o único escritor de gestora_id e gestora_nome; os dois
// campos mudam sempre juntos para o nome desnormalizado não divergir.
func (r *Repository) AssignGestora(ctx context.Context, id int64, gestoraID *int64, gestoraNome *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET gestora_id = $2, gestora_nome = $3, updated_at = now() WHERE id = $1`,
		id, gestoraID, gestoraNome)
	if err != nil {
		return fmt.Errorf("atribuir gestora: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNome atualiza o nome a pedido do próprio lead.
func (r *Repository) UpdateNome(ctx context.Context, id int64, nome string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET nome = $2, updated_at = now() WHERE id = $1`, id, nome)
	if err != nil {
		return fmt.Errorf("atualizar nome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNoCode marca o lead como à espera de ajuda humana depois de reportar
// que o código não chegou.
func (r *Repository) SetNoCode(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leads SET quer_falar_com_rafa = TRUE, estado_conversa = $2, updated_at = now()
		 WHERE id = $1`,
		id, ConversaAguardandoEscolha)
	if err != nil {
		return fmt.Errorf("marcar sem código: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdminUpdate aplica uma atualização parcial vinda do dashboard. A
// sincronização de gestora_nome é responsabilidade do Service.
func (r *Repository) AdminUpdate(ctx context.Context, id int64, in AdminUpdateInput) error {
	setParts := []string{}
	args := []any{id}
	idx := 2

	add := func(col string, val any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if in.Nome != nil {
		add("nome", *in.Nome)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.EstadoConversa != nil {
		add("estado_conversa", *in.EstadoConversa)
	}
	if in.QuerFalarComRafa != nil {
		add("quer_falar_com_rafa", *in.QuerFalarComRafa)
	}
	if in.EstadoDocs != nil {
		add("estado_docs", *in.EstadoDocs)
	}
	if in.Comentario != nil {
		add("comentario", *in.Comentario)
	}
	if in.ClearGestora {
		setParts = append(setParts, "gestora_id = NULL", "gestora_nome = NULL")
	} else if in.GestoraID != nil {
		add("gestora_id", *in.GestoraID)
		if in.GestoraNome != nil {
			add("gestora_nome", *in.GestoraNome)
		}
	}

	if len(setParts) == 0 {
		return nil
	}
	setParts = append(setParts, "updated_at = now()")

	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $1", strings.Join(setParts, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("atualizar lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("apagar lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
