package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditohabitacao/leads-api/internal/docs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestExtWhitelist(t *testing.T) {
	assert.Equal(t, ".pdf", Ext("doc.PDF"))
	assert.Equal(t, ".jpg", Ext("foto.jpg"))
	assert.Equal(t, ".jpeg", Ext("foto.JPEG"))
	assert.Equal(t, ".png", Ext("scan.png"))
	assert.Equal(t, ".pdf", Ext("arquivo.exe"))
	assert.Equal(t, ".pdf", Ext("sem-extensao"))
	assert.Equal(t, ".pdf", Ext(""))
}

func TestSaveDocumentCanonicalName(t *testing.T) {
	s := newTestStore(t)

	filename, err := s.SaveDocument(42, docs.IRSDeclaracao, []byte("conteudo"), "irs 2024.pdf")
	require.NoError(t, err)
	assert.Equal(t, "07-irs-declaracao.pdf", filename)

	list, err := s.ListDocuments(42)
	require.NoError(t, err)
	assert.True(t, list[docs.IRSDeclaracao].Uploaded)
	assert.Equal(t, "07-irs-declaracao.pdf", list[docs.IRSDeclaracao].Filename)
	assert.False(t, list[docs.ComprovativoMorada].Uploaded)
}

func TestSaveDocumentReplacesPreviousExtension(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveDocument(7, docs.ComprovativoMorada, []byte("a"), "morada.jpg")
	require.NoError(t, err)
	_, err = s.SaveDocument(7, docs.ComprovativoMorada, []byte("b"), "morada.pdf")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.BaseDir(), "7"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "09-comprovativo-morada.pdf", entries[0].Name())
}

func TestSaveDocumentUnknownField(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveDocument(1, "campo_inventado", []byte("x"), "x.pdf")
	assert.Error(t, err)
}

func TestAttachmentsSkipMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveDocument(3, docs.RGPDAssinado, []byte("assinado"), "rgpd.pdf")
	require.NoError(t, err)

	attachments, err := s.AttachmentsForLead(3, []docs.Key{docs.RGPDAssinado, docs.IRSDeclaracao})
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "11-rgpd-assinado.pdf", attachments[0].Filename)
	assert.Equal(t, []byte("assinado"), attachments[0].Content)
}

func TestDeleteLeadRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveDocument(9, docs.IRSDeclaracao, []byte("x"), "x.pdf")
	require.NoError(t, err)

	require.NoError(t, s.DeleteLead(9))
	_, err = os.Stat(filepath.Join(s.BaseDir(), "9"))
	assert.True(t, os.IsNotExist(err))

	// idempotente
	assert.NoError(t, s.DeleteLead(9))
}

func TestGestoraRGPD(t *testing.T) {
	s := newTestStore(t)

	has, err := s.HasGestoraRGPD(5)
	require.NoError(t, err)
	assert.False(t, has)

	content, err := s.ReadGestoraRGPD(5)
	require.NoError(t, err)
	assert.Nil(t, content)

	require.NoError(t, s.SaveGestoraRGPD(5, []byte("%PDF-1.4")))
	has, err = s.HasGestoraRGPD(5)
	require.NoError(t, err)
	assert.True(t, has)

	content, err = s.ReadGestoraRGPD(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)
}

func TestFAQAudioFilenameValidation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.WriteFAQAudio("12-3.ogg", []byte("audio")))
	assert.True(t, s.HasFAQAudio("12-3.ogg"))

	assert.ErrorIs(t, s.WriteFAQAudio("../escape.ogg", []byte("x")), ErrInvalidFilename)
	assert.ErrorIs(t, s.WriteFAQAudio("/abs.ogg", []byte("x")), ErrInvalidFilename)
	assert.ErrorIs(t, s.WriteFAQAudio("", []byte("x")), ErrInvalidFilename)
}

func TestCleanupOldRespectsRetention(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveDocument(1, docs.IRSDeclaracao, []byte("velho"), "x.pdf")
	require.NoError(t, err)
	_, err = s.SaveDocument(2, docs.IRSDeclaracao, []byte("novo"), "x.pdf")
	require.NoError(t, err)
	require.NoError(t, s.SaveGestoraRGPD(8, []byte("%PDF")))

	// envelhece o diretório do lead 1 para além da retenção
	old := time.Now().Add(-time.Duration(RetentionDays+1) * 24 * time.Hour)
	leadDir := filepath.Join(s.BaseDir(), "1")
	entries, err := os.ReadDir(leadDir)
	require.NoError(t, err)
	for _, ent := range entries {
		require.NoError(t, os.Chtimes(filepath.Join(leadDir, ent.Name()), old, old))
	}

	require.NoError(t, s.CleanupOld(time.Now()))

	_, err = os.Stat(leadDir)
	assert.True(t, os.IsNotExist(err), "diretório antigo deve ser removido")
	_, err = os.Stat(filepath.Join(s.BaseDir(), "2"))
	assert.NoError(t, err, "diretório recente deve sobreviver")
	has, err := s.HasGestoraRGPD(8)
	require.NoError(t, err)
	assert.True(t, has, "diretório de gestoras fica fora da limpeza")
}
