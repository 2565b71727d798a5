package cavali

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ── Envío del lote (bloqueo) ──────────────────────────────────────────────────

type blockRequest struct {
	ProcessDetail    processDetail    `json:"processDetail"`
	InvoiceXMLDetail invoiceXMLDetail `json:"invoiceXMLDetail"`
}

type processDetail struct {
	ProcessNumber int64 `json:"processNumber"`
}

type invoiceXMLDetail struct {
	InvoiceXML []invoiceXML `json:"invoiceXML"`
}

type invoiceXML struct {
	Name    string `json:"name"`
	FileXML string `json:"fileXml"` // contenido en Base64
}

type blockResponse struct {
	Response struct {
		IDProceso flexString `json:"idProceso"`
	} `json:"response"`
}

// ── Consulta de estado ────────────────────────────────────────────────────────

type statusRequest struct {
	ProcessFilter processFilter `json:"ProcessFilter"`
}

type processFilter struct {
	IDProcess string `json:"idProcess"`
}

type statusResponse struct {
	Response struct {
		Process struct {
			IDProcess            flexString `json:"idProcess"`
			ProcessInvoiceDetail struct {
				Invoice invoiceList `json:"Invoice"`
			} `json:"ProcessInvoiceDetail"`
		} `json:"Process"`
	} `json:"response"`
}

type invoiceStatus struct {
	Serie      flexString `json:"serie"`
	Numeration flexString `json:"numeration"`
	Message    string     `json:"message"`
}

// invoiceList Cavali devuelve un objeto cuando hay una sola factura y una lista cuando hay varias.
type invoiceList []invoiceStatus

func (l *invoiceList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case b[0] == '[':
		var items []invoiceStatus
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		var one invoiceStatus
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = invoiceList{one}
		return nil
	}
}

// flexString acepta string o número en el JSON.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("valor no es string ni número: %s", string(b))
	}
	*s = flexString(n.String())
	return nil
}
