// Package ticket renders signed PDF vouchers for accepted reservations.
package ticket

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var ErrBadSignature = errors.New("voucher signature mismatch")

// Voucher is the printable content of a reservation ticket.
type Voucher struct {
	ReservationID int64
	AttractionID  int64
	Attraction    string
	Location      string
	Province      string
	Date          string
	Time          string
	Holder        string
	Email         string
}

// Generator renders vouchers and signs their QR payload with Secret.
type Generator struct {
	Secret []byte
}

// NewGenerator creates a generator signing with secret.
func NewGenerator(secret string) *Generator {
	return &Generator{Secret: []byte(secret)}
}

// Payload returns reservationID|attractionID|date|time|signature.
func (g *Generator) Payload(v Voucher) string {
	data := fmt.Sprintf("%d|%d|%s|%s", v.ReservationID, v.AttractionID, v.Date, v.Time)
	return data + "|" + g.sign(data)
}

// Verify checks a payload produced by Payload and returns the reservation id it carries.
func (g *Generator) Verify(payload string) (int64, error) {
	i := strings.LastIndex(payload, "|")
	if i < 0 {
		return 0, ErrBadSignature
	}
	data, sig := payload[:i], payload[i+1:]
	if !hmac.Equal([]byte(sig), []byte(g.sign(data))) {
		return 0, ErrBadSignature
	}
	id, err := strconv.ParseInt(strings.SplitN(data, "|", 2)[0], 10, 64)
	if err != nil {
		return 0, ErrBadSignature
	}
	return id, nil
}

func (g *Generator) sign(data string) string {
	h := hmac.New(sha256.New, g.Secret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Render builds a one-page A4 PDF with the reservation details and a QR code.
func (g *Generator) Render(v Voucher) ([]byte, error) {
	qrPNG, err := qrcode.Encode(g.Payload(v), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Reservation #%d", v.ReservationID), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(v.Attraction))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	lines := []struct{ label, value string }{
		{"Reservation", "#" + strconv.FormatInt(v.ReservationID, 10)},
		{"Date", v.Date},
		{"Time", v.Time},
		{"Location", v.Location},
		{"Province", v.Province},
		{"Holder", v.Holder},
		{"Email", v.Email},
	}
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		pdf.Cell(0, 8, tr(l.label+": "+l.value))
		pdf.Ln(8)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 30, 45, 45, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
