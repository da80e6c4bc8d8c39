package faq

import (
	"errors"
	"time"
)

var (
	// ErrPerguntaNotFound indica pergunta inexistente.
	ErrPerguntaNotFound = errors.New("pergunta não encontrada")
	// ErrRespostaNotFound indica que a gestora ainda não respondeu à pergunta.
	ErrRespostaNotFound = errors.New("resposta não encontrada")
	// ErrSemAudio indica que nenhuma resposta da pergunta tem áudio.
	ErrSemAudio = errors.New("nenhuma resposta com áudio")
)

// Origens conhecidas de perguntas; a coluna aceita texto livre.
const (
	OrigemBot       = "bot"
	OrigemDashboard = "dashboard"
)

// Pergunta é uma pergunta frequente dos leads. Perguntas pendentes são
// as que nenhuma gestora respondeu ainda.
type Pergunta struct {
	ID               int64     `json:"id"`
	Texto            string    `json:"texto"`
	EhPendente       bool      `json:"eh_pendente"`
	Frequencia       int       `json:"frequencia"`
	ContactoWhatsapp *string   `json:"contacto_whatsapp,omitempty"`
	LeadID           *int64    `json:"lead_id,omitempty"`
	Origem           *string   `json:"origem,omitempty"`
	CriadoEm         time.Time `json:"created_at"`
	AtualizadoEm     time.Time `json:"updated_at"`
}

// Resposta é a resposta de uma gestora a uma pergunta; cada gestora tem
// no máximo uma resposta por pergunta. O áudio vive na base de dados e é
// materializado em disco para servir por URL estável.
type Resposta struct {
	PerguntaID    int64     `json:"pergunta_id"`
	GestoraID     int64     `json:"gestora_id"`
	GestoraNome   string    `json:"gestora_nome,omitempty"`
	Texto         *string   `json:"texto,omitempty"`
	AudioMimetype *string   `json:"audio_mimetype,omitempty"`
	TemAudio      bool      `json:"tem_audio"`
	Transcricao   *string   `json:"transcricao,omitempty"`
	CriadoEm      time.Time `json:"created_at"`
	AtualizadoEm  time.Time `json:"updated_at"`
}

// PerguntaUpdateInput é a atualização parcial de uma pergunta.
type PerguntaUpdateInput struct {
	Texto            *string
	EhPendente       *bool
	ContactoWhatsapp *string
	Origem           *string
}
