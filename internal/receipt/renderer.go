package receipt

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"cantina/internal/models"
)

const (
	lineWidth = 34
	nameWidth = 20
)

// Renderer formats an order into a fixed-width monospace ticket. Output
// is UTF-8 unless a legacy code page is configured, in which case runes
// the code page cannot represent fail with an EncodingError.
type Renderer struct {
	encodingName string
	charset      *charmap.Charmap
}

// NewRenderer creates a renderer for the named output encoding
func NewRenderer(encodingName string) (*Renderer, error) {
	r := &Renderer{encodingName: encodingName}

	switch strings.ToLower(encodingName) {
	case "", "utf-8", "utf8":
		// no transcoding
	case "latin-1", "iso-8859-1":
		r.charset = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		r.charset = charmap.Windows1252
	case "cp850":
		r.charset = charmap.CodePage850
	default:
		return nil, fmt.Errorf("unsupported receipt encoding: %s", encodingName)
	}
	return r, nil
}

// Charset returns the IANA name of the output encoding
func (r *Renderer) Charset() string {
	switch r.charset {
	case nil:
		return "utf-8"
	case charmap.ISO8859_1:
		return "iso-8859-1"
	case charmap.Windows1252:
		return "windows-1252"
	case charmap.CodePage850:
		return "ibm850"
	}
	return r.encodingName
}

// Render produces the ticket document. Given identical inputs, including
// the generation timestamp, the output is byte-for-byte identical.
func (r *Renderer) Render(rc models.Receipt) ([]byte, error) {
	var b strings.Builder

	rule := strings.Repeat("=", lineWidth)
	sep := strings.Repeat("-", lineWidth)

	b.WriteString(rule + "\n")
	b.WriteString(center(rc.Venue, lineWidth) + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Mesa: %s   Personas: %d\n", rc.TableName, rc.PartySize)
	fmt.Fprintf(&b, "Orden #%d   %s\n", rc.OrderID, rc.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString(sep + "\n")

	for _, li := range rc.Lines {
		fmt.Fprintf(&b, "%2d x %s $ %6s\n",
			li.Quantity, padRight(li.ProductName, nameWidth), li.Subtotal.StringFixed(2))
	}

	b.WriteString(sep + "\n")
	total := fmt.Sprintf("TOTAL: $ %s", rc.Total.StringFixed(2))
	fmt.Fprintf(&b, "%*s\n", lineWidth, total)
	b.WriteString(rule + "\n")

	return r.encode(b.String())
}

// encode transcodes the ticket to the configured code page. The encoder
// is strict: an unrepresentable rune aborts the whole render.
func (r *Renderer) encode(text string) ([]byte, error) {
	if r.charset == nil {
		return []byte(text), nil
	}

	out, err := r.charset.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, models.EncodingError{Encoding: r.encodingName, Err: err}
	}
	return out, nil
}

// padRight pads or truncates by rune count so accented names keep the
// columns aligned.
func padRight(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	left := (width - len(runes)) / 2
	return strings.Repeat(" ", left) + s
}
