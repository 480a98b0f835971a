package notifications

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/farmlink/farmlink-backend/pkg/enums"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`Hello {{.ContactName}},

Thank you for your order {{.Reference}}.

{{range .Lines}}- {{.Title}}: {{.Quantity}} {{.Unit}} x {{.UnitPrice}} = {{.LineTotal}}
{{end}}
Subtotal: {{.Subtotal}}
Delivery fee: {{.DeliveryFee}}
Total: {{.Total}}

{{if .Delivery}}We will let you know once a driver is on the way.{{else}}Your order will be ready for pickup soon.{{end}}
`))

var cancellationTemplate = template.Must(template.New("cancellation").Parse(`Hello {{.ContactName}},

Your order {{.Reference}} has been cancelled on {{.CancelledAt}}.
Any stock reserved for it has been released. The order total of {{.Total}} will not be charged.
`))

type confirmationView struct {
	payloads.OrderPlacedEvent
	Reference string
	Delivery  bool
}

type cancellationView struct {
	payloads.OrderCancelledEvent
	Reference   string
	CancelledAt string
}

// OrderConfirmationEmail renders the placement email.
func OrderConfirmationEmail(from string, event payloads.OrderPlacedEvent) (Email, error) {
	view := confirmationView{
		OrderPlacedEvent: event,
		Reference:        reference(event.OrderID.String()),
		Delivery:         event.DeliveryType == enums.DeliveryTypeDelivery,
	}
	body, err := render(confirmationTemplate, view)
	if err != nil {
		return Email{}, err
	}
	return Email{
		From:    from,
		To:      event.ContactEmail,
		Subject: fmt.Sprintf("Order %s confirmed", view.Reference),
		Body:    body,
	}, nil
}

// OrderCancellationEmail renders the cancellation email.
func OrderCancellationEmail(from string, event payloads.OrderCancelledEvent) (Email, error) {
	view := cancellationView{
		OrderCancelledEvent: event,
		Reference:           reference(event.OrderID.String()),
		CancelledAt:         event.CancelledAt.UTC().Format("2 Jan 2006 15:04 MST"),
	}
	body, err := render(cancellationTemplate, view)
	if err != nil {
		return Email{}, err
	}
	return Email{
		From:    from,
		To:      event.ContactEmail,
		Subject: fmt.Sprintf("Order %s cancelled", view.Reference),
		Body:    body,
	}, nil
}

func render(tmpl *template.Template, view any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func reference(orderID string) string {
	return "#" + strings.ToUpper(strings.SplitN(orderID, "-", 2)[0])
}
