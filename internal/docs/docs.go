// Package docs define o conjunto de documentos exigidos a um lead em
// função do vínculo laboral e das opções de financiamento.
package docs

import "strings"

// Key identifica um tipo de documento pedido ao lead.
type Key string

const (
	CartaoResidencia      Key = "cartao_residencia_ou_passaporte"
	ReciboVencimento1     Key = "recibo_vencimento_1"
	ReciboVencimento2     Key = "recibo_vencimento_2"
	ReciboVencimento3     Key = "recibo_vencimento_3"
	ContratoOuEfetividade Key = "contrato_ou_declaracao_efetividade"
	ContratoTemporario    Key = "contrato_temporario"
	ExtratoRecibos12Meses Key = "extrato_recibos_12_meses"
	DeclaracaoAbertura    Key = "declaracao_abertura_atividade"
	IRSDeclaracao         Key = "irs_declaracao"
	IRSNotaLiquidacao     Key = "irs_nota_liquidacao"
	ComprovativoMorada    Key = "comprovativo_morada"
	MapaResponsabilidades Key = "mapa_responsabilidades"
	RGPDAssinado          Key = "rgpd_assinado"
	NaoDividaFinancas     Key = "declaracao_nao_divida_financas"
	NaoDividaSegSocial    Key = "declaracao_nao_divida_seguranca_social"
	DeclaracaoPredial     Key = "declaracao_predial"
)

// Vínculos laborais com conjuntos de documentos próprios. Qualquer outro
// valor (incluindo contrato efetivo) cai no conjunto por defeito.
const (
	VinculoContratoTemporario = "Contrato temporário"
	VinculoRecibosVerdes      = "Recibos verdes"
)

// StandardNames mapeia cada documento para o prefixo canónico de ficheiro.
// O padrão é estável entre leads para que as gestoras possam automatizar
// sobre os anexos recebidos.
var StandardNames = map[Key]string{
	CartaoResidencia:      "01-cartao-residencia-ou-passaporte",
	ReciboVencimento1:     "02-recibo-vencimento-1",
	ReciboVencimento2:     "03-recibo-vencimento-2",
	ReciboVencimento3:     "04-recibo-vencimento-3",
	ContratoOuEfetividade: "05-contrato-ou-declaracao-efetividade",
	ContratoTemporario:    "05-contrato-temporario",
	ExtratoRecibos12Meses: "05-extrato-recibos-12-meses",
	DeclaracaoAbertura:    "06-declaracao-abertura-atividade",
	IRSDeclaracao:         "07-irs-declaracao",
	IRSNotaLiquidacao:     "08-irs-nota-liquidacao",
	ComprovativoMorada:    "09-comprovativo-morada",
	MapaResponsabilidades: "10-mapa-responsabilidades",
	RGPDAssinado:          "11-rgpd-assinado",
	NaoDividaFinancas:     "12-declaracao-nao-divida-financas",
	NaoDividaSegSocial:    "13-declaracao-nao-divida-seguranca-social",
	DeclaracaoPredial:     "14-declaracao-predial",
}

// Labels contém o nome humano de cada documento, usado nas mensagens de
// validação e no corpo dos emails.
var Labels = map[Key]string{
	CartaoResidencia:      "Cartão de residência ou passaporte",
	ReciboVencimento1:     "Recibo de vencimento 1",
	ReciboVencimento2:     "Recibo de vencimento 2",
	ReciboVencimento3:     "Recibo de vencimento 3",
	ContratoOuEfetividade: "Contrato ou declaração de efetividade",
	ContratoTemporario:    "Contrato",
	ExtratoRecibos12Meses: "Extrato dos últimos 12 meses de recibos verdes",
	DeclaracaoAbertura:    "Declaração de abertura de atividade",
	IRSDeclaracao:         "Declaração de IRS",
	IRSNotaLiquidacao:     "Nota de liquidação IRS",
	ComprovativoMorada:    "Comprovativo de morada",
	MapaResponsabilidades: "Mapa de responsabilidades de crédito",
	RGPDAssinado:          "Documento RGPD assinado",
	NaoDividaFinancas:     "Declaração de não dívida (Finanças)",
	NaoDividaSegSocial:    "Declaração de não dívida (Segurança Social)",
	DeclaracaoPredial:     "Declaração Predial negativa",
}

// allKeys segue a ordem dos prefixos canónicos 01 a 14; os anexos dos
// emails são montados por esta ordem.
var allKeys = []Key{
	CartaoResidencia,
	ReciboVencimento1,
	ReciboVencimento2,
	ReciboVencimento3,
	ContratoOuEfetividade,
	ContratoTemporario,
	ExtratoRecibos12Meses,
	DeclaracaoAbertura,
	IRSDeclaracao,
	IRSNotaLiquidacao,
	ComprovativoMorada,
	MapaResponsabilidades,
	RGPDAssinado,
	NaoDividaFinancas,
	NaoDividaSegSocial,
	DeclaracaoPredial,
}

// AllKeys devolve todos os campos de documento conhecidos, pela ordem
// canónica dos nomes de ficheiro.
func AllKeys() []Key {
	keys := make([]Key, len(allKeys))
	copy(keys, allKeys)
	return keys
}

// IsValid indica se a chave corresponde a um documento conhecido.
func IsValid(k Key) bool {
	_, ok := StandardNames[k]
	return ok
}

// Label devolve o nome humano do documento, ou a própria chave.
func Label(k Key) string {
	if l, ok := Labels[k]; ok {
		return l
	}
	return string(k)
}

var commonKeys = []Key{
	CartaoResidencia,
	IRSDeclaracao,
	IRSNotaLiquidacao,
	ComprovativoMorada,
	MapaResponsabilidades,
	RGPDAssinado,
}

var financiamento100Keys = []Key{
	NaoDividaFinancas,
	NaoDividaSegSocial,
	DeclaracaoPredial,
}

// Required calcula o conjunto ordenado de documentos obrigatórios para o
// vínculo laboral dado. O financiamento a 100% acrescenta as declarações
// de não dívida sem alterar o subconjunto do vínculo.
func Required(vinculo string, financiamento100 bool) []Key {
	var required []Key
	switch strings.TrimSpace(vinculo) {
	case VinculoContratoTemporario:
		required = append(required, ReciboVencimento1, ReciboVencimento2, ReciboVencimento3, ContratoTemporario)
	case VinculoRecibosVerdes:
		required = append(required, ExtratoRecibos12Meses, DeclaracaoAbertura)
	default:
		required = append(required, ReciboVencimento1, ReciboVencimento2, ReciboVencimento3, ContratoOuEfetividade)
	}
	required = append(required, commonKeys...)
	if financiamento100 {
		required = append(required, financiamento100Keys...)
	}
	return required
}

// Missing devolve os documentos obrigatórios ausentes do conjunto enviado.
func Missing(required []Key, have map[Key]bool) []Key {
	var missing []Key
	for _, k := range required {
		if !have[k] {
			missing = append(missing, k)
		}
	}
	return missing
}
