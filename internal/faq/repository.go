package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const perguntaColumns = `id, texto, eh_pendente, frequencia, contacto_whatsapp, lead_id, origem, created_at, updated_at`

// Repository acede às tabelas perguntas e respostas.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanPergunta(row pgx.Row) (*Pergunta, error) {
	var p Pergunta
	err := row.Scan(&p.ID, &p.Texto, &p.EhPendente, &p.Frequencia,
		&p.ContactoWhatsapp, &p.LeadID, &p.Origem, &p.CriadoEm, &p.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPerguntaNotFound
		}
		return nil, fmt.Errorf("scan pergunta: %w", err)
	}
	return &p, nil
}

func (r *Repository) GetPergunta(ctx context.Context, id int64) (*Pergunta, error) {
	row := r.db.QueryRow(ctx, `SELECT `+perguntaColumns+` FROM perguntas WHERE id = $1`, id)
	return scanPergunta(row)
}

// ListPerguntas devolve todas as perguntas, mais frequentes primeiro.
func (r *Repository) ListPerguntas(ctx context.Context) ([]*Pergunta, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+perguntaColumns+` FROM perguntas ORDER BY frequencia DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listar perguntas: %w", err)
	}
	defer rows.Close()
	return collectPerguntas(rows)
}

// ListPendentes devolve as dúvidas ainda sem resposta, mais antigas
// primeiro para serem atendidas por ordem de chegada.
func (r *Repository) ListPendentes(ctx context.Context) ([]*Pergunta, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+perguntaColumns+` FROM perguntas WHERE eh_pendente ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listar pendentes: %w", err)
	}
	defer rows.Close()
	return collectPerguntas(rows)
}

func collectPerguntas(rows pgx.Rows) ([]*Pergunta, error) {
	out := make([]*Pergunta, 0)
	for rows.Next() {
		p, err := scanPergunta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) CountPendentes(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM perguntas WHERE eh_pendente`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("contar pendentes: %w", err)
	}
	return n, nil
}

// FindPerguntaByTexto procura uma pergunta com o mesmo texto, sem
// distinguir maiúsculas; devolve nil quando não existe.
func (r *Repository) FindPerguntaByTexto(ctx context.Context, texto string) (*Pergunta, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+perguntaColumns+` FROM perguntas WHERE lower(texto) = lower($1) LIMIT 1`,
		strings.TrimSpace(texto))
	p, err := scanPergunta(row)
	if errors.Is(err, ErrPerguntaNotFound) {
		return nil, nil
	}
	return p, err
}

// CreatePergunta regista uma pergunta nova, pendente por omissão.
func (r *Repository) CreatePergunta(ctx context.Context, texto string, contactoWhatsapp *string, leadID *int64, origem *string) (*Pergunta, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO perguntas (texto, eh_pendente, frequencia, contacto_whatsapp, lead_id, origem)
		 VALUES ($1, TRUE, 1, $2, $3, $4)
		 RETURNING `+perguntaColumns,
		texto, contactoWhatsapp, leadID, origem)
	return scanPergunta(row)
}

// IncrementFrequencia conta mais uma ocorrência da pergunta.
func (r *Repository) IncrementFrequencia(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE perguntas SET frequencia = frequencia + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementar frequência: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPerguntaNotFound
	}
	return nil
}

func (r *Repository) UpdatePergunta(ctx context.Context, id int64, in PerguntaUpdateInput) error {
	setParts := []string{}
	args := []any{id}
	idx := 2

	add := func(col string, val any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if in.Texto != nil {
		add("texto", *in.Texto)
	}
	if in.EhPendente != nil {
		add("eh_pendente", *in.EhPendente)
	}
	if in.ContactoWhatsapp != nil {
		add("contacto_whatsapp", *in.ContactoWhatsapp)
	}
	if in.Origem != nil {
		add("origem", *in.Origem)
	}
	if len(setParts) == 0 {
		return nil
	}
	setParts = append(setParts, "updated_at = now()")

	query := fmt.Sprintf("UPDATE perguntas SET %s WHERE id = $1", strings.Join(setParts, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("atualizar pergunta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPerguntaNotFound
	}
	return nil
}

// DeletePergunta apaga a pergunta; as respostas caem por cascata.
func (r *Repository) DeletePergunta(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM perguntas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("apagar pergunta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPerguntaNotFound
	}
	return nil
}

const respostaColumns = `r.pergunta_id, r.gestora_id, g.nome, r.texto, r.audio_mimetype,
	r.audio IS NOT NULL, r.transcricao, r.created_at, r.updated_at`

func scanResposta(row pgx.Row) (*Resposta, error) {
	var res Resposta
	err := row.Scan(&res.PerguntaID, &res.GestoraID, &res.GestoraNome, &res.Texto,
		&res.AudioMimetype, &res.TemAudio, &res.Transcricao, &res.CriadoEm, &res.AtualizadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRespostaNotFound
		}
		return nil, fmt.Errorf("scan resposta: %w", err)
	}
	return &res, nil
}

// ListRespostas devolve as respostas de uma pergunta, sem o áudio.
func (r *Repository) ListRespostas(ctx context.Context, perguntaID int64) ([]*Resposta, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+respostaColumns+`
		 FROM respostas r JOIN gestoras g ON g.id = r.gestora_id
		 WHERE r.pergunta_id = $1 ORDER BY r.created_at ASC`, perguntaID)
	if err != nil {
		return nil, fmt.Errorf("listar respostas: %w", err)
	}
	defer rows.Close()

	out := make([]*Resposta, 0)
	for rows.Next() {
		res, err := scanResposta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repository) GetResposta(ctx context.Context, perguntaID, gestoraID int64) (*Resposta, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+respostaColumns+`
		 FROM respostas r JOIN gestoras g ON g.id = r.gestora_id
		 WHERE r.pergunta_id = $1 AND r.gestora_id = $2`, perguntaID, gestoraID)
	return scanResposta(row)
}

// UpsertTexto cria ou substitui a resposta textual da gestora e tira a
// pergunta de pendente.
func (r *Repository) UpsertTexto(ctx context.Context, perguntaID, gestoraID int64, texto string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO respostas (pergunta_id, gestora_id, texto)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (pergunta_id, gestora_id)
		 DO UPDATE SET texto = EXCLUDED.texto, updated_at = now()`,
		perguntaID, gestoraID, texto)
	if err != nil {
		return fmt.Errorf("gravar resposta: %w", err)
	}
	return r.markAnswered(ctx, perguntaID)
}

// UpsertAudio cria ou substitui a resposta áudio da gestora.
func (r *Repository) UpsertAudio(ctx context.Context, perguntaID, gestoraID int64, audio []byte, mimetype string, transcricao *string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO respostas (pergunta_id, gestora_id, audio, audio_mimetype, transcricao)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (pergunta_id, gestora_id)
		 DO UPDATE SET audio = EXCLUDED.audio, audio_mimetype = EXCLUDED.audio_mimetype,
			transcricao = COALESCE(EXCLUDED.transcricao, respostas.transcricao), updated_at = now()`,
		perguntaID, gestoraID, audio, mimetype, transcricao)
	if err != nil {
		return fmt.Errorf("gravar resposta áudio: %w", err)
	}
	return r.markAnswered(ctx, perguntaID)
}

func (r *Repository) markAnswered(ctx context.Context, perguntaID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE perguntas SET eh_pendente = FALSE, updated_at = now() WHERE id = $1 AND eh_pendente`,
		perguntaID)
	if err != nil {
		return fmt.Errorf("marcar pergunta respondida: %w", err)
	}
	return nil
}

// DeleteResposta apaga a resposta da gestora; se era a última, a
// pergunta volta a pendente.
func (r *Repository) DeleteResposta(ctx context.Context, perguntaID, gestoraID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM respostas WHERE pergunta_id = $1 AND gestora_id = $2`, perguntaID, gestoraID)
	if err != nil {
		return fmt.Errorf("apagar resposta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRespostaNotFound
	}

	_, err = r.db.Exec(ctx,
		`UPDATE perguntas SET eh_pendente = TRUE, updated_at = now()
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM respostas WHERE pergunta_id = $1)`,
		perguntaID)
	if err != nil {
		return fmt.Errorf("repor pergunta pendente: %w", err)
	}
	return nil
}

// GetAudio devolve o áudio bruto de uma resposta.
func (r *Repository) GetAudio(ctx context.Context, perguntaID, gestoraID int64) ([]byte, string, error) {
	var audio []byte
	var mimetype *string
	err := r.db.QueryRow(ctx,
		`SELECT audio, audio_mimetype FROM respostas
		 WHERE pergunta_id = $1 AND gestora_id = $2 AND audio IS NOT NULL`,
		perguntaID, gestoraID).Scan(&audio, &mimetype)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrRespostaNotFound
		}
		return nil, "", fmt.Errorf("ler áudio: %w", err)
	}
	mt := "audio/ogg"
	if mimetype != nil && *mimetype != "" {
		mt = *mimetype
	}
	return audio, mt, nil
}

// FirstAudio devolve o áudio da resposta mais antiga com áudio da
// pergunta, para o bot reencaminhar por WhatsApp.
func (r *Repository) FirstAudio(ctx context.Context, perguntaID int64) (gestoraID int64, audio []byte, mimetype string, err error) {
	var mt *string
	err = r.db.QueryRow(ctx,
		`SELECT gestora_id, audio, audio_mimetype FROM respostas
		 WHERE pergunta_id = $1 AND audio IS NOT NULL
		 ORDER BY created_at ASC LIMIT 1`,
		perguntaID).Scan(&gestoraID, &audio, &mt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, "", ErrSemAudio
		}
		return 0, nil, "", fmt.Errorf("ler primeiro áudio: %w", err)
	}
	mimetype = "audio/ogg"
	if mt != nil && *mt != "" {
		mimetype = *mt
	}
	return gestoraID, audio, mimetype, nil
}
