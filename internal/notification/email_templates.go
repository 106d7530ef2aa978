package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// Content blocks rendered inside RenderDocument. html/template escapes every
// caller-supplied value; only the Style Kit layout is trusted markup.
const frameLayout = `{{define "frame"}}<div class="container">
<div class="header"><h1 style="color: #ffffff; margin: 0;">Monthly Club</h1></div>
<div class="content">
{{template "body" .}}
</div>
<div class="footer">
<p>Monthly Club &middot; Subscriptions for service businesses</p>
<p><a href="{{.AppURL}}">{{.AppURL}}</a></p>
</div>
</div>{{end}}`

const welcomeContent = `{{define "body"}}<h1>Welcome to Monthly Club, {{.Name}}!</h1>
{{if .IsBusiness}}<p>Your business account is ready. Set up your first membership product and start taking monthly payments from your customers.</p>
<div class="card">
<h3>Next steps</h3>
<p>1. Complete your business profile<br>2. Connect your payout account<br>3. Create your first product</p>
</div>{{else}}<p>Your account is ready. You can manage your subscriptions and message the businesses you subscribe to from your dashboard.</p>{{end}}
<p><a class="button" href="{{.DashboardURL}}">Go to your dashboard</a></p>{{end}}`

const subscriptionConfirmedContent = `{{define "body"}}<h1>You're subscribed!</h1>
<p>Hi {{.CustomerName}}, your subscription to <strong>{{.ProductName}}</strong> with {{.BusinessName}} is confirmed.</p>
<div class="card">
<h3>{{.ProductName}} <span class="badge">Active</span></h3>
<p><strong>{{.Amount}}</strong> per month, taken on the {{.BillingDay}} of each month.</p>
<p>Next payment: <strong>{{.NextPayment}}</strong></p>
</div>
<p><a class="button" href="{{.DashboardURL}}">Manage subscription</a></p>{{end}}`

const paymentContent = `{{define "body"}}{{if .Failed}}<h1>Payment failed</h1>
<p>Hi {{.CustomerName}}, we couldn't take your payment of <strong>{{.Amount}}</strong> for {{.ProductName}} with {{.BusinessName}}.</p>
<div class="card" style="border-color: #fca5a5; background-color: #fef2f2;">
<h3 style="color: #b91c1c;">Action required</h3>
{{if .FailureReason}}<p>Reason: {{.FailureReason}}</p>{{end}}
<p>Please update your payment method to keep your subscription active.</p>
</div>
<p><a class="button" href="{{.DashboardURL}}">Update payment method</a></p>{{else}}<h1>Payment received</h1>
<p>Hi {{.CustomerName}}, thanks for your payment to {{.BusinessName}}.</p>
<div class="card">
<h3>{{.ProductName}} <span class="badge">Paid</span></h3>
<p>Amount: <strong>{{.Amount}}</strong></p>
{{if .PaidAt}}<p>Date: {{.PaidAt}}</p>{{end}}
</div>
<p><a class="button-secondary" href="{{.DashboardURL}}">View your payments</a></p>{{end}}{{end}}`

const subscriptionCancelledContent = `{{define "body"}}<h1>Subscription cancelled</h1>
<p>Hi {{.CustomerName}}, your subscription to <strong>{{.ProductName}}</strong> with {{.BusinessName}} has been cancelled.</p>
<div class="card">
{{if .EndsAt}}<p>You'll keep access until <strong>{{.EndsAt}}</strong>. No further payments will be taken.</p>{{else}}<p>No further payments will be taken.</p>{{end}}
</div>
<p>Changed your mind? You can resubscribe at any time.</p>
<p><a class="button-secondary" href="{{.DashboardURL}}">Browse subscriptions</a></p>{{end}}`

const messageContent = `{{define "body"}}<h1>New message from {{.SenderName}}</h1>
<p>Hi {{.RecipientName}}, {{.SenderName}}{{if .BusinessName}} ({{.BusinessName}}){{end}} sent you a message:</p>
<div class="card">
<p>{{.Snippet}}</p>
</div>
<p><a class="button" href="{{.ConversationURL}}">Reply</a></p>{{end}}`

const newSubscriberContent = `{{define "body"}}<h1>You have a new subscriber!</h1>
<p>Great news, {{.BusinessName}}: {{.CustomerName}} has subscribed to <strong>{{.ProductName}}</strong>.</p>
<div class="card">
<h3>{{.CustomerName}} <span class="badge">New</span></h3>
<p>Email: {{.CustomerEmail}}</p>
<p>Plan: {{.ProductName}} at <strong>{{.Amount}}</strong> per month</p>
<p>Billed on the {{.BillingDay}} of each month, first payment {{.NextPayment}}.</p>
</div>
<p><a class="button" href="{{.DashboardURL}}">View subscribers</a></p>{{end}}`

const businessPaymentFailedContent = `{{define "body"}}<h1>A payment failed</h1>
<p>Hi {{.BusinessName}}, a payment from {{.CustomerName}} for <strong>{{.ProductName}}</strong> could not be taken.</p>
<div class="card" style="border-color: #fca5a5; background-color: #fef2f2;">
<p>Customer: {{.CustomerName}} ({{.CustomerEmail}})</p>
<p>Amount: <strong>{{.Amount}}</strong></p>
{{if .FailedAt}}<p>Attempted: {{.FailedAt}}</p>{{end}}
{{if .FailureReason}}<p>Reason: {{.FailureReason}}</p>{{end}}
</div>
<p>We've asked the customer to update their payment method. You may want to get in touch with them.</p>
<p><a class="button" href="{{.DashboardURL}}">View subscriber</a></p>{{end}}`

var styledTemplates = map[Kind]*template.Template{
	KindWelcome:               mustStyled("welcome", welcomeContent),
	KindSubscriptionConfirmed: mustStyled("subscription_confirmed", subscriptionConfirmedContent),
	KindPaymentSucceeded:      mustStyled("payment", paymentContent),
	KindPaymentFailed:         mustStyled("payment", paymentContent),
	KindSubscriptionCancelled: mustStyled("subscription_cancelled", subscriptionCancelledContent),
	KindNewMessage:            mustStyled("new_message", messageContent),
	KindNewSubscriber:         mustStyled("new_subscriber", newSubscriberContent),
	KindBusinessPaymentFailed: mustStyled("business_payment_failed", businessPaymentFailedContent),
}

func mustStyled(name, content string) *template.Template {
	t := template.Must(template.New(name).Parse(frameLayout))
	return template.Must(t.Parse(content))
}

// renderStyled renders a Style Kit document for kind with the given view data.
func renderStyled(kind Kind, title string, data any) (string, error) {
	tmpl, ok := styledTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "frame", data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return RenderDocument(buf.String(), title), nil
}
