package notification

import (
	"encoding/base64"
	"strconv"

	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// QRGenerator renders the scannable code staff read at pickup. It encodes the order id.
type QRGenerator struct {
	size int
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = defaultQRSize
	}
	return &QRGenerator{size: size}
}

func (g *QRGenerator) PNG(orderID int64) ([]byte, error) {
	return qrcode.Encode(strconv.FormatInt(orderID, 10), qrcode.Medium, g.size)
}

// DataURL returns the PNG as a data: URL clients can put straight into an <img>.
func (g *QRGenerator) DataURL(orderID int64) (string, error) {
	png, err := g.PNG(orderID)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
