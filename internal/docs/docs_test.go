package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asSet(keys []Key) map[Key]bool {
	set := make(map[Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func TestRequiredIncludesCommonBase(t *testing.T) {
	vinculos := []string{VinculoContratoTemporario, VinculoRecibosVerdes, "Contrato efetivo", "", "qualquer coisa"}
	for _, v := range vinculos {
		for _, fin := range []bool{false, true} {
			set := asSet(Required(v, fin))
			for _, base := range commonKeys {
				assert.Truef(t, set[base], "vinculo %q financiamento %v deve exigir %s", v, fin, base)
			}
		}
	}
}

func TestRequiredContratoTemporario(t *testing.T) {
	got := Required("Contrato temporário", false)
	want := []Key{
		ReciboVencimento1, ReciboVencimento2, ReciboVencimento3, ContratoTemporario,
		CartaoResidencia, IRSDeclaracao, IRSNotaLiquidacao, ComprovativoMorada,
		MapaResponsabilidades, RGPDAssinado,
	}
	require.Len(t, got, 10)
	assert.Equal(t, asSet(want), asSet(got))
}

func TestRequiredRecibosVerdes(t *testing.T) {
	set := asSet(Required("Recibos verdes", false))
	assert.True(t, set[ExtratoRecibos12Meses])
	assert.True(t, set[DeclaracaoAbertura])
	assert.False(t, set[ReciboVencimento1])
	assert.False(t, set[ContratoOuEfetividade])
}

func TestRequiredDefaultVinculo(t *testing.T) {
	set := asSet(Required("Contrato sem termo", false))
	assert.True(t, set[ReciboVencimento1])
	assert.True(t, set[ReciboVencimento2])
	assert.True(t, set[ReciboVencimento3])
	assert.True(t, set[ContratoOuEfetividade])
	assert.False(t, set[ContratoTemporario])
}

func TestFinanciamento100AddsExactlyThree(t *testing.T) {
	for _, v := range []string{VinculoContratoTemporario, VinculoRecibosVerdes, "efetivo"} {
		base := Required(v, false)
		full := Required(v, true)
		require.Len(t, full, len(base)+3)

		baseSet := asSet(base)
		fullSet := asSet(full)
		for k := range baseSet {
			assert.True(t, fullSet[k], "financiamento 100%% não deve retirar documentos do vínculo")
		}
		assert.True(t, fullSet[NaoDividaFinancas])
		assert.True(t, fullSet[NaoDividaSegSocial])
		assert.True(t, fullSet[DeclaracaoPredial])
	}
}

func TestMissing(t *testing.T) {
	required := Required(VinculoRecibosVerdes, false)
	have := asSet(required)
	delete(have, IRSDeclaracao)
	delete(have, ExtratoRecibos12Meses)

	missing := Missing(required, have)
	assert.Equal(t, asSet([]Key{IRSDeclaracao, ExtratoRecibos12Meses}), asSet(missing))

	assert.Empty(t, Missing(required, asSet(required)))
}

func TestStandardNamesAndLabelsCoverAllKeys(t *testing.T) {
	for _, k := range AllKeys() {
		assert.NotEmpty(t, StandardNames[k])
		assert.NotEmpty(t, Labels[k])
		assert.True(t, IsValid(k))
	}
	assert.False(t, IsValid("documento_inventado"))
	assert.Equal(t, "documento_inventado", Label("documento_inventado"))
}

func TestAllKeysSegueOrdemCanonica(t *testing.T) {
	keys := AllKeys()
	require.Len(t, keys, len(StandardNames))
	for i := 1; i < len(keys); i++ {
		assert.LessOrEqual(t, StandardNames[keys[i-1]], StandardNames[keys[i]],
			"%s deve vir antes de %s", keys[i-1], keys[i])
	}
	// Chamadas sucessivas devolvem sempre a mesma ordem.
	assert.Equal(t, keys, AllKeys())
}
