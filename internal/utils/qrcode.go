package utils

import qrcode "github.com/skip2/go-qrcode"

// GenerateTrackingQR renders the tracking URL as a PNG QR code.
func GenerateTrackingQR(trackingURL string) ([]byte, error) {
	return qrcode.Encode(trackingURL, qrcode.Medium, 256)
}
