// Package storage guarda os documentos enviados pelos leads em disco,
// um diretório por lead, além dos PDFs RGPD das gestoras e dos áudios de
// FAQ materializados para consumo externo.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creditohabitacao/leads-api/internal/docs"
)

// RetentionDays define o prazo de vida de um diretório de lead sem
// atividade antes de ser removido pela limpeza periódica.
const RetentionDays = 30

const (
	gestorasDirName = "gestoras"
	faqAudioDirName = "faq-audio"
	rgpdFilename    = "rgpd.pdf"
)

var allowedExts = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Document descreve o estado de um documento no diretório do lead.
type Document struct {
	Uploaded bool   `json:"uploaded"`
	Filename string `json:"filename,omitempty"`
}

// Attachment é um ficheiro pronto a anexar num email.
type Attachment struct {
	Filename string
	Content  []byte
}

// Store persiste documentos em disco sob um diretório base.
type Store struct {
	baseDir string
}

// New cria o store e garante os diretórios de base.
func New(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("storage: diretório base obrigatório")
	}
	s := &Store{baseDir: baseDir}
	if err := os.MkdirAll(s.faqAudioDir(), 0o755); err != nil {
		return nil, err
	}
	return s, nil
}

// BaseDir devolve o diretório raiz do store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) leadDir(leadID int64) string {
	return filepath.Join(s.baseDir, strconv.FormatInt(leadID, 10))
}

func (s *Store) gestoraDir(gestoraID int64) string {
	return filepath.Join(s.baseDir, gestorasDirName, strconv.FormatInt(gestoraID, 10))
}

func (s *Store) faqAudioDir() string {
	return filepath.Join(s.baseDir, faqAudioDirName)
}

// Ext normaliza a extensão do nome original; fora da whitelist cai em .pdf.
func Ext(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if allowedExts[ext] {
		return ext
	}
	return ".pdf"
}

// SaveDocument grava o ficheiro com o nome canónico do campo e devolve o
// nome final. Uploads repetidos do mesmo campo substituem o anterior.
func (s *Store) SaveDocument(leadID int64, field docs.Key, content []byte, originalName string) (string, error) {
	base, ok := docs.StandardNames[field]
	if !ok {
		return "", errors.New("storage: campo de documento desconhecido")
	}

	dir := s.leadDir(leadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	// remove variantes anteriores com outra extensão
	if existing, err := s.findByPrefix(dir, base); err == nil && existing != "" {
		_ = os.Remove(filepath.Join(dir, existing))
	}

	filename := base + Ext(originalName)
	if err := os.WriteFile(filepath.Join(dir, filename), content, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *Store) findByPrefix(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, ent := range entries {
		if !ent.IsDir() && strings.HasPrefix(ent.Name(), prefix) {
			return ent.Name(), nil
		}
	}
	return "", nil
}

// ListDocuments devolve o estado de cada documento conhecido para o lead.
func (s *Store) ListDocuments(leadID int64) (map[docs.Key]Document, error) {
	result := make(map[docs.Key]Document, len(docs.StandardNames))
	for k := range docs.StandardNames {
		result[k] = Document{Uploaded: false}
	}

	entries, err := os.ReadDir(s.leadDir(leadID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return nil, err
	}

	for field, base := range docs.StandardNames {
		for _, ent := range entries {
			if !ent.IsDir() && strings.HasPrefix(ent.Name(), base) {
				result[field] = Document{Uploaded: true, Filename: ent.Name()}
				break
			}
		}
	}
	return result, nil
}

// ReadDocument lê o conteúdo de um documento, ou nil se não existir.
func (s *Store) ReadDocument(leadID int64, field docs.Key) ([]byte, string, error) {
	list, err := s.ListDocuments(leadID)
	if err != nil {
		return nil, "", err
	}
	doc := list[field]
	if !doc.Uploaded {
		return nil, "", nil
	}
	content, err := os.ReadFile(filepath.Join(s.leadDir(leadID), doc.Filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return content, doc.Filename, nil
}

// AttachmentsForLead monta os anexos existentes para os campos pedidos.
func (s *Store) AttachmentsForLead(leadID int64, fields []docs.Key) ([]Attachment, error) {
	var attachments []Attachment
	for _, field := range fields {
		content, filename, err := s.ReadDocument(leadID, field)
		if err != nil {
			return nil, err
		}
		if content == nil {
			continue
		}
		attachments = append(attachments, Attachment{Filename: filename, Content: content})
	}
	return attachments, nil
}

// DeleteLead remove todo o diretório de documentos do lead.
func (s *Store) DeleteLead(leadID int64) error {
	err := os.RemoveAll(s.leadDir(leadID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveGestoraRGPD grava o PDF de consentimento da gestora.
func (s *Store) SaveGestoraRGPD(gestoraID int64, content []byte) error {
	dir := s.gestoraDir(gestoraID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, rgpdFilename), content, 0o644)
}

// ReadGestoraRGPD devolve o PDF RGPD da gestora, ou nil se não existir.
func (s *Store) ReadGestoraRGPD(gestoraID int64) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.gestoraDir(gestoraID), rgpdFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return content, nil
}

// HasGestoraRGPD indica se a gestora já enviou o seu PDF RGPD.
func (s *Store) HasGestoraRGPD(gestoraID int64) (bool, error) {
	_, err := os.Stat(filepath.Join(s.gestoraDir(gestoraID), rgpdFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteFAQAudio materializa um áudio de resposta para servir diretamente.
func (s *Store) WriteFAQAudio(filename string, content []byte) error {
	if err := validateFAQFilename(filename); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.faqAudioDir(), filename), content, 0o644)
}

// FAQAudioPath devolve o caminho de um áudio materializado, validando o
// nome contra travessias de diretório.
func (s *Store) FAQAudioPath(filename string) (string, error) {
	if err := validateFAQFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.faqAudioDir(), filename), nil
}

// HasFAQAudio indica se o áudio já foi materializado em disco.
func (s *Store) HasFAQAudio(filename string) bool {
	path, err := s.FAQAudioPath(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

var ErrInvalidFilename = errors.New("storage: nome de ficheiro inválido")

func validateFAQFilename(filename string) error {
	if filename == "" || strings.Contains(filename, "..") || filepath.IsAbs(filename) || strings.ContainsAny(filename, `/\`) {
		return ErrInvalidFilename
	}
	return nil
}

// CleanupOld remove diretórios de leads cujo ficheiro mais recente passou
// do prazo de retenção. Diretórios de gestoras e áudios de FAQ ficam fora
// do alcance da limpeza.
func (s *Store) CleanupOld(now time.Time) error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	maxAge := RetentionDays * 24 * time.Hour
	for _, ent := range entries {
		if !ent.IsDir() || ent.Name() == gestorasDirName || ent.Name() == faqAudioDirName {
			continue
		}
		dirPath := filepath.Join(s.baseDir, ent.Name())

		var newest time.Time
		files, err := os.ReadDir(dirPath)
		if err == nil {
			for _, f := range files {
				info, err := f.Info()
				if err != nil {
					continue
				}
				if info.ModTime().After(newest) {
					newest = info.ModTime()
				}
			}
		}

		if newest.IsZero() || now.Sub(newest) > maxAge {
			_ = os.RemoveAll(dirPath)
		}
	}
	return nil
}
