// Package mailer sends order notifications to customers.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"nust-bites/logger"
	"nust-bites/models"
)

//go:generate mockgen -destination=../mocks/mock_mailer.go -package=mocks nust-bites/mailer Mailer

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(_ context.Context, to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}

// LogMailer writes emails to the application log instead of sending them.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(ctx context.Context, to, subject, _ string) error {
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("email not sent: SMTP is not configured")
	return nil
}

var orderTmpl = template.Must(template.New("order").Parse(`<h2>{{.Heading}}</h2>
<p>Order <strong>{{.Order.OrderCode}}</strong> from {{.Order.RestaurantName}} is now <strong>{{.Order.Status}}</strong>.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Quantity}} × {{.Name}}{{range .SelectedOptions}} ({{.Group}}: {{.Choice}}){{end}}</td><td>Rs. {{printf "%.2f" .LineTotal}}</td></tr>
{{end}}<tr><td>Delivery ({{printf "%.1f" .Order.DistanceKm}} km)</td><td>Rs. {{printf "%.2f" .Order.DeliveryFee}}</td></tr>
<tr><td><strong>Total</strong></td><td><strong>Rs. {{printf "%.2f" .Order.TotalAmount}}</strong></td></tr>
</table>
<p>Delivering to: {{.Order.DropoffAddress}}</p>`))

// Notifier renders order emails and hands them to a Mailer.
type Notifier struct {
	mailer Mailer
}

func NewNotifier(m Mailer) *Notifier {
	return &Notifier{mailer: m}
}

// OrderPlaced emails the order confirmation.
func (n *Notifier) OrderPlaced(ctx context.Context, to string, order *models.Order) error {
	return n.send(ctx, to, fmt.Sprintf("Order %s received", order.OrderCode), "Thanks for your order!", order)
}

// OrderStatusChanged emails a status update.
func (n *Notifier) OrderStatusChanged(ctx context.Context, to string, order *models.Order) error {
	return n.send(ctx, to, fmt.Sprintf("Order %s is %s", order.OrderCode, order.Status), "Your order was updated", order)
}

func (n *Notifier) send(ctx context.Context, to, subject, heading string, order *models.Order) error {
	var buf bytes.Buffer
	err := orderTmpl.Execute(&buf, struct {
		Heading string
		Order   *models.Order
	}{heading, order})
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return n.mailer.Send(ctx, to, subject, buf.String())
}
