package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/wneessen/go-mail"

	"github.com/saisumanth4024/storefront/internal/models"
)

func newMailClient() (*mail.Client, error) {
	return mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
}

func fromAddress() string {
	if from := os.Getenv("SMTP_FROM"); from != "" {
		return from
	}
	return "noreply@storefront.example.com"
}

// SendOTPEmail delivers a one-time verification code.
func SendOTPEmail(to, code string) error {
	msg := mail.NewMsg()
	if err := msg.From(fromAddress()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Your payment verification code")
	msg.SetBodyString(mail.TypeTextHTML, fmt.Sprintf(`
<body style="font-family: Arial, sans-serif;">
	<p>Your verification code is:</p>
	<h2 style="letter-spacing: 4px;">%s</h2>
	<p>It expires in 5 minutes. If you did not request it, ignore this email.</p>
</body>`, code))

	client, err := newMailClient()
	if err != nil {
		return err
	}

	log.Println("📤 Sending verification code to", to)
	return client.DialAndSend(msg)
}

// SendOrderConfirmationEmail sends the confirmation with an optional
// tracking QR code attached as PNG.
func SendOrderConfirmationEmail(to string, order models.Order, trackingQR []byte) error {
	msg := mail.NewMsg()
	if err := msg.From(fromAddress()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject("Your order confirmation")
	msg.SetBodyString(mail.TypeTextHTML, GenerateOrderConfirmationHTML(order))

	if trackingQR != nil {
		msg.AttachReader("tracking_qr.png", bytes.NewReader(trackingQR))
	}

	client, err := newMailClient()
	if err != nil {
		return err
	}

	log.Println("📤 Sending order confirmation to", to)
	return client.DialAndSend(msg)
}

// GenerateOrderConfirmationHTML renders the order summary body.
func GenerateOrderConfirmationHTML(order models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%.2f€</td>
				<td>%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Order confirmation</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Thank you for your order</h2>
		<p>Order <strong>%s</strong> is confirmed.</p>
		<p>Estimated delivery: %s<br>Tracking number: %s</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Product</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantity</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Unit price</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 10px; font-weight: bold;">%.2f€</td>
				</tr>
			</tfoot>
		</table>

		<p style="margin-top: 30px; color: #555;">
			Track your parcel: <a href="%s">%s</a>
		</p>
	</div>
</body>
</html>`, order.ID, order.EstimatedDelivery.Format("Monday, 2 January 2006"),
		order.TrackingNumber, itemsHTML, order.Totals.Total, order.TrackingURL, order.TrackingURL)
}
