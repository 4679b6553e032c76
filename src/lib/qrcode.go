package lib

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode"
)

// QRCodePNG encodes content as a PNG QR code.
func QRCodePNG(content string) ([]byte, error) {
	qrc, err := qrcode.New(
		content,
		qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT),
		qrcode.WithQRWidth(8),
	)
	if err != nil {
		return nil, fmt.Errorf("error encoding qrcode: %w", err)
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("error writing qrcode image: %w", err)
	}
	return buf.Bytes(), nil
}
