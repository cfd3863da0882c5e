// Package share renders QR codes pointing at public calendar pages.
package share

import (
	"errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

type QRGenerator struct {
	baseURL string
	size    int
}

func NewQRGenerator(baseURL string, size int) *QRGenerator {
	if size <= 0 {
		size = defaultSize
	}
	return &QRGenerator{baseURL: strings.TrimRight(baseURL, "/"), size: size}
}

// EventURL is the public page of the event with the given slug.
func (q *QRGenerator) EventURL(slug string) string {
	return q.baseURL + "/event/" + url.PathEscape(slug)
}

// EventPNG encodes the event page URL as a PNG QR code.
func (q *QRGenerator) EventPNG(slug string) ([]byte, error) {
	if slug == "" {
		return nil, errors.New("empty event slug")
	}
	return qrcode.Encode(q.EventURL(slug), qrcode.Medium, q.size)
}
