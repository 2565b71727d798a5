package ubl_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/infrastructure/ubl"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type invoiceXML struct {
	ID            string
	IssueDate     string
	DueDate       string
	PaymentMethod string
	Detraction    string
	Total         string
	Currency      string
	DebtorName    string
	ClientName    string
	CBCPrefix     string
	CACPrefix     string
}

func defaultInvoice() invoiceXML {
	return invoiceXML{
		ID:         "F001-00000123",
		IssueDate:  "2024-01-10",
		Total:      "1180.00",
		Currency:   "PEN",
		DebtorName: "Minera Andina S.A.C.",
		ClientName: "Servicios Generales del Sur E.I.R.L.",
		CBCPrefix:  "cbc",
		CACPrefix:  "cac",
	}
}

func (x invoiceXML) render() string {
	b, a := x.CBCPrefix, x.CACPrefix
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="ISO-8859-1"?>`+"\n")
	fmt.Fprintf(&sb, `<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:%s="%s" xmlns:%s="%s">`,
		b, ubl.NamespaceCBC, a, ubl.NamespaceCAC)
	fmt.Fprintf(&sb, `<%s:ID>%s</%s:ID>`, b, x.ID, b)
	if x.IssueDate != "" {
		fmt.Fprintf(&sb, `<%s:IssueDate>%s</%s:IssueDate>`, b, x.IssueDate, b)
	}
	fmt.Fprintf(&sb, `<%[1]s:AccountingSupplierParty><%[1]s:Party><%[1]s:PartyIdentification><%[2]s:ID>20123456789</%[2]s:ID></%[1]s:PartyIdentification>`+
		`<%[1]s:PartyLegalEntity><%[2]s:RegistrationName>%[3]s</%[2]s:RegistrationName></%[1]s:PartyLegalEntity></%[1]s:Party></%[1]s:AccountingSupplierParty>`,
		a, b, x.ClientName)
	fmt.Fprintf(&sb, `<%[1]s:AccountingCustomerParty><%[1]s:Party><%[1]s:PartyIdentification><%[2]s:ID>20987654321</%[2]s:ID></%[1]s:PartyIdentification>`+
		`<%[1]s:PartyLegalEntity><%[2]s:RegistrationName>%[3]s</%[2]s:RegistrationName></%[1]s:PartyLegalEntity></%[1]s:Party></%[1]s:AccountingCustomerParty>`,
		a, b, x.DebtorName)
	if x.PaymentMethod != "" {
		fmt.Fprintf(&sb, `<%[1]s:PaymentTerms><%[2]s:ID>FormaPago</%[2]s:ID><%[2]s:PaymentMeansID>%[3]s</%[2]s:PaymentMeansID></%[1]s:PaymentTerms>`,
			a, b, x.PaymentMethod)
	}
	if x.Detraction != "" {
		fmt.Fprintf(&sb, `<%[1]s:PaymentTerms><%[2]s:ID>Detraccion</%[2]s:ID><%[2]s:PaymentPercent>%[3]s</%[2]s:PaymentPercent></%[1]s:PaymentTerms>`,
			a, b, x.Detraction)
	}
	if x.DueDate != "" {
		fmt.Fprintf(&sb, `<%[1]s:PaymentTerms><%[2]s:PaymentDueDate>%[3]s</%[2]s:PaymentDueDate></%[1]s:PaymentTerms>`,
			a, b, x.DueDate)
	}
	currencyAttr := ""
	if x.Currency != "" {
		currencyAttr = fmt.Sprintf(` currencyID="%s"`, x.Currency)
	}
	fmt.Fprintf(&sb, `<%[1]s:LegalMonetaryTotal><%[2]s:PayableAmount%[3]s>%[4]s</%[2]s:PayableAmount></%[1]s:LegalMonetaryTotal>`,
		a, b, currencyAttr, x.Total)
	sb.WriteString(`</Invoice>`)
	return sb.String()
}

func (x invoiceXML) file(name string) entity.OperationFile {
	return entity.NewOperationFile(name, []byte(x.render()))
}

// ──────────────────────────────────────────────────────────────────────────────

func TestParseInvoice_CamposBasicos(t *testing.T) {
	x := defaultInvoice()
	x.Detraction = "12"
	x.DueDate = "2024-02-15"

	inv, err := ubl.NewParser().ParseInvoice([]byte(x.render()))
	require.NoError(t, err)

	assert.Equal(t, "F001-00000123", inv.DocumentID)
	require.NotNil(t, inv.IssueDate)
	assert.Equal(t, "2024-01-10", inv.IssueDate.Format("2006-01-02"))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2024-02-15", inv.DueDate.Format("2006-01-02"))
	assert.Equal(t, "PEN", inv.Currency)
	assert.True(t, inv.TotalAmount.Equal(decimal.RequireFromString("1180")))
	assert.True(t, inv.NetAmount.Equal(decimal.RequireFromString("1038.4")), "neto = 1180 * 88 / 100")
	assert.Equal(t, "Minera Andina S.A.C.", inv.DebtorName)
	assert.Equal(t, "20987654321", inv.DebtorRUC)
	assert.Equal(t, "20123456789", inv.ClientRUC)
	assert.Nil(t, inv.ValidationMessage, "sin conciliar no hay mensaje de validación")
}

func TestParseInvoice_VencimientoContadoYCredito(t *testing.T) {
	p := ubl.NewParser()

	contado := defaultInvoice()
	contado.PaymentMethod = "Contado"
	inv, err := p.ParseInvoice([]byte(contado.render()))
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2024-03-10", inv.DueDate.Format("2006-01-02"))

	credito := defaultInvoice()
	credito.PaymentMethod = "credito"
	inv, err = p.ParseInvoice([]byte(credito.render()))
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2024-01-10", inv.DueDate.Format("2006-01-02"))

	sinFechas := defaultInvoice()
	sinFechas.IssueDate = ""
	inv, err = p.ParseInvoice([]byte(sinFechas.render()))
	require.NoError(t, err)
	assert.Nil(t, inv.IssueDate)
	assert.Nil(t, inv.DueDate)
}

func TestParseInvoice_MonedaPorDefecto(t *testing.T) {
	x := defaultInvoice()
	x.Currency = ""
	inv, err := ubl.NewParser().ParseInvoice([]byte(x.render()))
	require.NoError(t, err)
	assert.Equal(t, "N/A", inv.Currency)
}

func TestParseInvoice_PrefijosArbitrarios(t *testing.T) {
	x := defaultInvoice()
	x.CBCPrefix = "b"
	x.CACPrefix = "a"
	x.Detraction = "10"

	inv, err := ubl.NewParser().ParseInvoice([]byte(x.render()))
	require.NoError(t, err, "los prefijos se resuelven por URI de namespace")
	assert.Equal(t, "20987654321", inv.DebtorRUC)
	assert.True(t, inv.NetAmount.Equal(decimal.RequireFromString("1062")))
}

func TestParseInvoice_Latin1(t *testing.T) {
	x := defaultInvoice()
	x.DebtorName = "Compañía Ñandú S.A."
	// ISO-8859-1: ñ = 0xF1, Ñ = 0xD1, ú = 0xFA
	utf8 := x.render()
	latin := make([]byte, 0, len(utf8))
	for _, r := range utf8 {
		latin = append(latin, byte(r))
	}

	inv, err := ubl.NewParser().ParseInvoice(latin)
	require.NoError(t, err)
	assert.Equal(t, "Compañía Ñandú S.A.", inv.DebtorName)
}

func TestParseInvoice_ConBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(defaultInvoice().render())...)
	inv, err := ubl.NewParser().ParseInvoice(content)
	require.NoError(t, err)
	assert.Equal(t, "F001-00000123", inv.DocumentID)
}

func TestParseInvoice_Rechazos(t *testing.T) {
	p := ubl.NewParser()

	_, err := p.ParseInvoice(nil)
	assert.ErrorContains(t, err, "vacío")

	sinDeudor := defaultInvoice()
	sinDeudor.DebtorName = ""
	_, err = p.ParseInvoice([]byte(sinDeudor.render()))
	assert.ErrorContains(t, err, "deudor")

	fechaMala := defaultInvoice()
	fechaMala.IssueDate = "10/01/2024"
	_, err = p.ParseInvoice([]byte(fechaMala.render()))
	assert.Error(t, err)

	detraccionMala := defaultInvoice()
	detraccionMala.Detraction = "120"
	_, err = p.ParseInvoice([]byte(detraccionMala.render()))
	assert.Error(t, err)

	_, err = p.ParseInvoice([]byte("<Invoice><sin-cerrar>"))
	assert.Error(t, err)
}

func TestParse_OmiteInvalidosYConservaOrden(t *testing.T) {
	var files []entity.OperationFile
	for i := 1; i <= 4; i++ {
		x := defaultInvoice()
		x.ID = fmt.Sprintf("F001-%08d", i)
		files = append(files, x.file(fmt.Sprintf("f%d.xml", i)))
	}
	malformed := entity.NewOperationFile("roto.xml", []byte("<Invoice>"))
	files = append(files[:2], append([]entity.OperationFile{malformed}, files[2:]...)...)

	res := ubl.NewParser().Parse(files)

	require.Len(t, res.Documents, 4)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "roto.xml", res.Warnings[0].Filename)
	ids := make([]string, 0, 4)
	for _, inv := range res.Invoices() {
		ids = append(ids, inv.DocumentID)
	}
	assert.Equal(t, []string{"F001-00000001", "F001-00000002", "F001-00000003", "F001-00000004"}, ids)
	assert.Equal(t, "f1.xml", res.Documents[0].File.Filename, "cada factura conserva su archivo")
}
