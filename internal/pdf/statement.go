package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/gestordeclinica/backend/internal/caldate"
)

// StatementLine é um lançamento do extrato do paciente.
type StatementLine struct {
	DueDate     caldate.Date
	Description string
	Type        string // income | expense
	Status      string // pending | paid | cancelled
	AmountCents int64
	PaidDate    caldate.Date
}

type Statement struct {
	ClinicName  string
	PatientName string
	PatientCPF  string
	From, To    caldate.Date
	Lines       []StatementLine
	// PatientURL vira QR code no rodapé (página do paciente no SPA).
	PatientURL  string
	GeneratedAt time.Time
}

// Totals: canceladas não entram.
func (s Statement) Totals() (paid, pending int64) {
	for _, l := range s.Lines {
		if l.Type != "income" {
			continue
		}
		switch l.Status {
		case "paid":
			paid += l.AmountCents
		case "pending":
			pending += l.AmountCents
		}
	}
	return paid, pending
}

// FormatBRL formata centavos como "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	reais := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range reais {
		if i > 0 && (len(reais)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents%100)
}

var statusLabel = map[string]string{"paid": "Pago", "pending": "Pendente", "cancelled": "Cancelado"}

func BuildStatementPDF(s Statement) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteStatement(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteStatement(s Statement, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Fontes core são cp1252: acentos passam pelo tradutor.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(tr("Extrato financeiro - "+s.PatientName), false)
	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Gerado em %s - página %d", generated.Format("02/01/2006 15:04"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(s.ClinicName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr("Extrato financeiro do paciente"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Paciente: "+s.PatientName), "", 1, "L", false, 0, "")
	if s.PatientCPF != "" {
		pdf.CellFormat(0, 6, "CPF: "+s.PatientCPF, "", 1, "L", false, 0, "")
	}
	period := "todo o histórico"
	if !s.From.IsZero() || !s.To.IsZero() {
		period = fmt.Sprintf("%s a %s", orDash(s.From), orDash(s.To))
	}
	pdf.CellFormat(0, 6, tr("Período: "+period), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{25, 80, 25, 25, 25}
	headers := []string{"Vencimento", "Descrição", "Situação", "Pago em", "Valor"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "L"
		if i == len(headers)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(s.Lines) == 0 {
		pdf.CellFormat(0, 7, tr("Nenhum lançamento no período."), "1", 1, "C", false, 0, "")
	}
	for _, l := range s.Lines {
		amount := l.AmountCents
		if l.Type == "expense" {
			amount = -amount
		}
		desc := l.Description
		if len([]rune(desc)) > 48 {
			desc = string([]rune(desc)[:47]) + "…"
		}
		pdf.CellFormat(widths[0], 6, l.DueDate.FormatBR(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(statusLabel[l.Status]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, orDash(l.PaidDate), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, FormatBRL(amount), "1", 1, "R", false, 0, "")
	}

	paid, pending := s.Totals()
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Total pago: "+FormatBRL(paid), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Total pendente: "+FormatBRL(pending), "", 1, "R", false, 0, "")

	if s.PatientURL != "" {
		png, err := qrcode.Encode(s.PatientURL, qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("qrcode: %w", err)
		}
		pdf.RegisterImageOptionsReader("patient-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		pdf.Ln(6)
		y := pdf.GetY()
		pdf.ImageOptions("patient-qr", 15, y, 28, 28, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetXY(46, y+10)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(0, 4, tr("Acesse o cadastro do paciente: "+s.PatientURL), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func orDash(d caldate.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.FormatBR()
}
