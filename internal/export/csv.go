// Package export serializes already-loaded records for report
// downloads. It never talks to the store; the caller decides which
// records and in what order.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dveraz/carbontrack/internal/model"
)

// Reports are consumed by Spanish-speaking users, so numbers and dates
// follow the es locale: decimal comma, dd/MM/yyyy.
var esPrinter = message.NewPrinter(language.Spanish)

// CompaniesCSV writes the company listing as semicolon-separated CSV.
// Text fields are always quoted, with inner quotes doubled, so the
// files open cleanly in Excel.
func CompaniesCSV(w io.Writer, companies []model.Company) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("Nombre;Sector\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range companies {
		_, err := fmt.Fprintf(bw, "\"%s\";\"%s\"\n", escapeQuotes(c.Name), escapeQuotes(c.Sector))
		if err != nil {
			return fmt.Errorf("write company row: %w", err)
		}
	}

	return bw.Flush()
}

// EmissionsCSV writes the emission history as semicolon-separated CSV.
// The company column carries the display name attached by the joined
// searches, not the company id.
func EmissionsCSV(w io.Writer, emissions []model.Emission) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("Empresa;Tipo;Cantidad;CO2e (kg);Fecha\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range emissions {
		_, err := fmt.Fprintf(bw, "\"%s\";\"%s\";%s;%s;\"%s\"\n",
			escapeQuotes(e.CompanyName),
			escapeQuotes(e.Type),
			esPrinter.Sprintf("%.2f", e.Quantity),
			esPrinter.Sprintf("%.2f", e.CO2e),
			formatDate(e.Date),
		)
		if err != nil {
			return fmt.Errorf("write emission row: %w", err)
		}
	}

	return bw.Flush()
}

// formatDate renders a stored ISO date as dd/MM/yyyy. Timestamp
// suffixes are stripped first; anything unparseable is passed through
// so the row never loses its date entirely.
func formatDate(raw string) string {
	datePart := raw
	if i := strings.IndexByte(datePart, ' '); i >= 0 {
		datePart = datePart[:i]
	}

	t, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006")
}

// escapeQuotes doubles inner quotes so quoted CSV fields stay balanced.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
