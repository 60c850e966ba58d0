package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template names understood by the email and SMS senders.
const (
	TemplateRequestCreated      = "request_created"
	TemplateRequestStatus       = "request_status"
	TemplateDriverAssigned      = "driver_assigned"
	TemplateCollectionConfirmed = "collection_confirmed"
	TemplatePaymentSettled      = "payment_settled"
	TemplateRequestDeleted      = "request_deleted"
)

const emailLayout = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif">{{template "body" .}}<p style="color:#888;font-size:12px">Municipal Waste Collection</p></body></html>`

var emailBodies = map[string]string{
	TemplateRequestCreated:      `<h2>Pickup request received</h2><p>Your {{.category}} pickup on {{.pickUpDate}} is registered. Estimated price: {{.amount}}.</p>`,
	TemplateRequestStatus:       `<h2>Pickup request {{.status}}</h2><p>Request {{.requestId}} is now {{.status}}.</p>`,
	TemplateDriverAssigned:      `<h2>Driver assigned</h2><p>{{.driverName}} ({{.vehicleNumber}}) will collect request {{.requestId}} on {{.pickUpDate}}.</p>`,
	TemplateCollectionConfirmed: `<h2>Waste collected</h2><p>Request {{.requestId}} was collected. You can now leave a rating.</p>`,
	TemplatePaymentSettled:      `<h2>Payment received</h2><p>We received {{.amount}} via {{.method}} for request {{.requestId}}.</p>`,
	TemplateRequestDeleted:      `<h2>Pickup request removed</h2><p>Request {{.requestId}} was deleted.</p>`,
}

var smsBodies = map[string]string{
	TemplateDriverAssigned:      `New pickup {{.requestId}} at {{.address}}, {{.city}} on {{.pickUpDate}}.`,
	TemplateRequestDeleted:      `Pickup {{.requestId}} was cancelled.`,
	TemplateCollectionConfirmed: `Pickup {{.requestId}} marked as collected.`,
}

// Renderer turns template names plus data into message bodies.
type Renderer struct {
	email map[string]*htmltemplate.Template
	sms   map[string]*texttemplate.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		email: make(map[string]*htmltemplate.Template, len(emailBodies)),
		sms:   make(map[string]*texttemplate.Template, len(smsBodies)),
	}
	for name, body := range emailBodies {
		tpl, err := htmltemplate.New(name).Parse(emailLayout)
		if err == nil {
			_, err = tpl.New("body").Parse(body)
		}
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		r.email[name] = tpl
	}
	for name, body := range smsBodies {
		tpl, err := texttemplate.New(name).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse sms template %s: %w", name, err)
		}
		r.sms[name] = tpl
	}
	return r, nil
}

// HTML renders an email body.
func (r *Renderer) HTML(name string, data map[string]interface{}) (string, error) {
	tpl, ok := r.email[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Text renders an SMS body.
func (r *Renderer) Text(name string, data map[string]interface{}) (string, error) {
	tpl, ok := r.sms[name]
	if !ok {
		return "", fmt.Errorf("unknown sms template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render sms template %s: %w", name, err)
	}
	return buf.String(), nil
}
