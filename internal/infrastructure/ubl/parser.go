package ubl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
)

// Namespaces UBL 2.1 (componentes básicos y agregados).
const (
	NamespaceCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NamespaceCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
)

const (
	dateLayout      = "2006-01-02"
	defaultCurrency = "N/A"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Rutas precompiladas; los prefijos se normalizan a cbc/cac antes de buscar.
var (
	pathID             = etree.MustCompilePath("./cbc:ID")
	pathIssueDate      = etree.MustCompilePath(".//cbc:IssueDate")
	pathPayableAmount  = etree.MustCompilePath(".//cac:LegalMonetaryTotal/cbc:PayableAmount")
	pathDetraction     = etree.MustCompilePath(".//cac:PaymentTerms[cbc:ID='Detraccion']/cbc:PaymentPercent")
	pathPaymentMethod  = etree.MustCompilePath(".//cac:PaymentTerms[cbc:ID='FormaPago']/cbc:PaymentMeansID")
	pathPaymentDueDate = etree.MustCompilePath(".//cac:PaymentTerms/cbc:PaymentDueDate")
	pathDebtorName     = etree.MustCompilePath(".//cac:AccountingCustomerParty//cac:PartyLegalEntity/cbc:RegistrationName")
	pathDebtorRUC      = etree.MustCompilePath(".//cac:AccountingCustomerParty//cac:PartyIdentification/cbc:ID")
	pathClientName     = etree.MustCompilePath(".//cac:AccountingSupplierParty//cac:PartyLegalEntity/cbc:RegistrationName")
	pathClientRUC      = etree.MustCompilePath(".//cac:AccountingSupplierParty//cac:PartyIdentification/cbc:ID")
)

// Document factura extraída junto con el archivo de origen (el validador necesita el contenido crudo).
type Document struct {
	Invoice entity.Invoice
	File    entity.OperationFile
}

// Warning archivo omitido durante el parseo.
type Warning struct {
	Filename string
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Filename, w.Reason)
}

// Result acumulado del parseo: éxitos en orden de entrada y advertencias.
type Result struct {
	Documents []Document
	Warnings  []Warning
}

// Invoices devuelve solo las facturas, en el mismo orden.
func (r Result) Invoices() []entity.Invoice {
	out := make([]entity.Invoice, len(r.Documents))
	for i, d := range r.Documents {
		out[i] = d.Invoice
	}
	return out
}

// Parser convierte XML UBL en facturas canónicas. No hace I/O fuera de los bytes recibidos.
type Parser struct{}

// NewParser construye el parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse procesa cada archivo de forma independiente; un archivo inválido se registra
// como advertencia y se omite sin afectar al resto.
func (p *Parser) Parse(files []entity.OperationFile) Result {
	var res Result
	for _, f := range files {
		inv, err := p.ParseInvoice(f.Content)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Filename: f.Filename, Reason: err.Error()})
			continue
		}
		res.Documents = append(res.Documents, Document{Invoice: inv, File: f})
	}
	return res
}

// ParseInvoice extrae una factura de un único XML.
func (p *Parser) ParseInvoice(content []byte) (entity.Invoice, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return entity.Invoice{}, errors.New("archivo vacío")
	}
	root, err := readRoot(content)
	if err != nil {
		return entity.Invoice{}, err
	}
	normalizeNamespaces(root)

	issueDate, err := optionalDate(root, pathIssueDate)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("fecha de emisión: %w", err)
	}
	explicitDue, err := optionalDate(root, pathPaymentDueDate)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("fecha de vencimiento: %w", err)
	}
	total, err := decimalText(root, pathPayableAmount)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("monto total: %w", err)
	}
	detraction, err := decimalText(root, pathDetraction)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("detracción: %w", err)
	}
	if err := factoring.ValidateDetraction(detraction); err != nil {
		return entity.Invoice{}, err
	}

	inv := entity.Invoice{
		DocumentID:  findText(root, pathID),
		IssueDate:   issueDate,
		DueDate:     factoring.ResolveDueDate(explicitDue, issueDate, findText(root, pathPaymentMethod)),
		Currency:    currency(root),
		TotalAmount: total,
		NetAmount:   factoring.NetAmount(total, detraction),
		DebtorName:  findText(root, pathDebtorName),
		DebtorRUC:   findText(root, pathDebtorRUC),
		ClientName:  findText(root, pathClientName),
		ClientRUC:   findText(root, pathClientRUC),
	}
	if err := requireFields(inv); err != nil {
		return entity.Invoice{}, err
	}
	return inv, nil
}

// readRoot intenta primero Latin-1 → UTF-8 y luego UTF-8 sin BOM.
// Los productores no declaran la codificación de forma confiable.
func readRoot(content []byte) (*etree.Element, error) {
	var firstErr error
	latin, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), content)
	if err == nil {
		root, perr := parseUTF8(latin)
		if perr == nil {
			return root, nil
		}
		firstErr = perr
	} else {
		firstErr = err
	}
	root, err := parseUTF8(bytes.TrimPrefix(content, utf8BOM))
	if err != nil {
		return nil, fmt.Errorf("XML inválido: %w", errors.Join(firstErr, err))
	}
	return root, nil
}

func parseUTF8(b []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	// El contenido ya es UTF-8: se ignora la codificación declarada en el prólogo.
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("documento sin raíz")
	}
	return root, nil
}

// normalizeNamespaces reescribe los prefijos de cbc/cac según su URI, sin importar
// qué prefijo eligió el emisor. Primero se resuelven todas las URIs porque la
// resolución depende de los prefijos originales de los ancestros.
func normalizeNamespaces(root *etree.Element) {
	type rename struct {
		el    *etree.Element
		space string
	}
	var renames []rename
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		switch el.NamespaceURI() {
		case NamespaceCBC:
			renames = append(renames, rename{el, "cbc"})
		case NamespaceCAC:
			renames = append(renames, rename{el, "cac"})
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
	for _, r := range renames {
		r.el.Space = r.space
	}
}

// findText devuelve el texto recortado del primer nodo, o "" si no existe.
func findText(root *etree.Element, path etree.Path) string {
	el := root.FindElementPath(path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func optionalDate(root *etree.Element, path etree.Path) (*time.Time, error) {
	s := findText(root, path)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalText(root *etree.Element, path etree.Path) (decimal.Decimal, error) {
	s := findText(root, path)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func currency(root *etree.Element) string {
	el := root.FindElementPath(pathPayableAmount)
	if el == nil {
		return defaultCurrency
	}
	if c := strings.TrimSpace(el.SelectAttrValue("currencyID", "")); c != "" {
		return c
	}
	return defaultCurrency
}

func requireFields(inv entity.Invoice) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"cbc:ID", inv.DocumentID},
		{"deudor", inv.DebtorName},
		{"RUC deudor", inv.DebtorRUC},
		{"cliente", inv.ClientName},
		{"RUC cliente", inv.ClientRUC},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("campos obligatorios vacíos: %s", strings.Join(missing, ", "))
	}
	return nil
}
