package faq

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Store abstrai o repositório de FAQ para os testes do serviço.
type Store interface {
	GetPergunta(ctx context.Context, id int64) (*Pergunta, error)
	ListPerguntas(ctx context.Context) ([]*Pergunta, error)
	ListPendentes(ctx context.Context) ([]*Pergunta, error)
	CountPendentes(ctx context.Context) (int, error)
	FindPerguntaByTexto(ctx context.Context, texto string) (*Pergunta, error)
	CreatePergunta(ctx context.Context, texto string, contactoWhatsapp *string, leadID *int64, origem *string) (*Pergunta, error)
	IncrementFrequencia(ctx context.Context, id int64) error
	UpdatePergunta(ctx context.Context, id int64, in PerguntaUpdateInput) error
	DeletePergunta(ctx context.Context, id int64) error
	ListRespostas(ctx context.Context, perguntaID int64) ([]*Resposta, error)
	GetResposta(ctx context.Context, perguntaID, gestoraID int64) (*Resposta, error)
	UpsertTexto(ctx context.Context, perguntaID, gestoraID int64, texto string) error
	UpsertAudio(ctx context.Context, perguntaID, gestoraID int64, audio []byte, mimetype string, transcricao *string) error
	DeleteResposta(ctx context.Context, perguntaID, gestoraID int64) error
	GetAudio(ctx context.Context, perguntaID, gestoraID int64) ([]byte, string, error)
	FirstAudio(ctx context.Context, perguntaID int64) (int64, []byte, string, error)
}

// AudioStore materializa os áudios das respostas em disco para servir
// por URL estável.
type AudioStore interface {
	WriteFAQAudio(filename string, content []byte) error
	HasFAQAudio(filename string) bool
}

// EmbeddingNotifier avisa a ponte WhatsApp quando uma resposta muda.
type EmbeddingNotifier interface {
	Enabled() bool
	UpdateEmbedding(ctx context.Context, perguntaID int64) error
}

// Service concentra as regras do FAQ: registo e contagem de perguntas,
// respostas das gestoras e a ponte com o bot.
type Service struct {
	repo  Store
	audio AudioStore
	evo   EmbeddingNotifier
	log   zerolog.Logger
}

func NewService(repo Store, audio AudioStore, evo EmbeddingNotifier, log zerolog.Logger) *Service {
	return &Service{repo: repo, audio: audio, evo: evo, log: log}
}

// Repo expõe o store subjacente para consultas simples dos handlers.
func (s *Service) Repo() Store {
	return s.repo
}

// Register regista uma pergunta vinda do bot; se já existe uma com o
// mesmo texto a frequência sobe em vez de duplicar.
func (s *Service) Register(ctx context.Context, texto string, contactoWhatsapp *string, leadID *int64, origem *string) (*Pergunta, bool, error) {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return nil, false, fmt.Errorf("texto da pergunta vazio")
	}

	existing, err := s.repo.FindPerguntaByTexto(ctx, texto)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.repo.IncrementFrequencia(ctx, existing.ID); err != nil {
			return nil, false, err
		}
		existing.Frequencia++
		return existing, false, nil
	}

	p, err := s.repo.CreatePergunta(ctx, texto, contactoWhatsapp, leadID, origem)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// AnswerTexto grava a resposta textual da gestora e pede a reindexação
// do embedding; a falha da ponte não desfaz a resposta.
func (s *Service) AnswerTexto(ctx context.Context, perguntaID, gestoraID int64, texto string) error {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return fmt.Errorf("texto da resposta vazio")
	}
	if _, err := s.repo.GetPergunta(ctx, perguntaID); err != nil {
		return err
	}
	if err := s.repo.UpsertTexto(ctx, perguntaID, gestoraID, texto); err != nil {
		return err
	}
	s.notifyEmbedding(ctx, perguntaID)
	return nil
}

// AnswerAudio grava a resposta áudio da gestora na base de dados e
// materializa o ficheiro em disco.
func (s *Service) AnswerAudio(ctx context.Context, perguntaID, gestoraID int64, audio []byte, mimetype string, transcricao *string) error {
	if len(audio) == 0 {
		return fmt.Errorf("áudio vazio")
	}
	if _, err := s.repo.GetPergunta(ctx, perguntaID); err != nil {
		return err
	}
	if err := s.repo.UpsertAudio(ctx, perguntaID, gestoraID, audio, mimetype, transcricao); err != nil {
		return err
	}

	filename := AudioFilename(perguntaID, gestoraID, mimetype)
	if err := s.audio.WriteFAQAudio(filename, audio); err != nil {
		s.log.Warn().Err(err).Str("filename", filename).Msg("falha a materializar áudio da resposta")
	}
	s.notifyEmbedding(ctx, perguntaID)
	return nil
}

// DeleteResposta apaga a resposta da gestora e pede a reindexação.
func (s *Service) DeleteResposta(ctx context.Context, perguntaID, gestoraID int64) error {
	if err := s.repo.DeleteResposta(ctx, perguntaID, gestoraID); err != nil {
		return err
	}
	s.notifyEmbedding(ctx, perguntaID)
	return nil
}

// BotAudio devolve o nome do ficheiro do primeiro áudio da pergunta,
// regravando-o em disco se necessário.
func (s *Service) BotAudio(ctx context.Context, perguntaID int64) (string, string, error) {
	gestoraID, audio, mimetype, err := s.repo.FirstAudio(ctx, perguntaID)
	if err != nil {
		return "", "", err
	}

	filename := AudioFilename(perguntaID, gestoraID, mimetype)
	if !s.audio.HasFAQAudio(filename) {
		if err := s.audio.WriteFAQAudio(filename, audio); err != nil {
			return "", "", fmt.Errorf("materializar áudio: %w", err)
		}
	}
	return filename, mimetype, nil
}

func (s *Service) notifyEmbedding(ctx context.Context, perguntaID int64) {
	if s.evo == nil || !s.evo.Enabled() {
		return
	}
	if err := s.evo.UpdateEmbedding(ctx, perguntaID); err != nil {
		s.log.Warn().Err(err).Int64("pergunta_id", perguntaID).Msg("falha a atualizar embedding")
	}
}

// AudioFilename é o nome determinístico do ficheiro materializado de uma
// resposta áudio.
func AudioFilename(perguntaID, gestoraID int64, mimetype string) string {
	return fmt.Sprintf("resposta-%d-%d%s", perguntaID, gestoraID, extForMime(mimetype))
}

func extForMime(mimetype string) string {
	switch strings.ToLower(strings.TrimSpace(mimetype)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".ogg"
	}
}
