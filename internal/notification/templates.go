package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// Owner alerts go to the operators' mailbox and are deliberately plain: no
// document shell and no Style Kit.
var ownerTemplates = map[Kind]*template.Template{
	KindOwnerNewSignup: template.Must(template.New("owner_new_signup").Parse(`<h2>New user signup</h2>
<p><strong>Email:</strong> {{.Email}}</p>
{{if .Name}}<p><strong>Name:</strong> {{.Name}}</p>{{end}}
{{if .AccountType}}<p><strong>Account type:</strong> {{.AccountType}}</p>{{end}}
<p><strong>Signed up:</strong> {{.SignedUpAt}}</p>`)),

	KindOwnerBusinessActivated: template.Must(template.New("owner_business_activated").Parse(`<h2>Business activated</h2>
<p><strong>Business:</strong> {{.BusinessName}}</p>
<p><strong>Contact:</strong> {{.ContactEmail}}</p>
{{if .PageURL}}<p><strong>Page:</strong> <a href="{{.PageURL}}">{{.PageURL}}</a></p>{{end}}
<p><strong>Activated:</strong> {{.ActivatedAt}}</p>`)),

	KindOwnerCronReport: template.Must(template.New("owner_cron_report").Parse(`<h2>Billing cron job report</h2>
<p><strong>Run at:</strong> {{.RunAt}}{{if .Duration}} ({{.Duration}}){{end}}</p>
<table cellpadding="4" cellspacing="0" border="1">
<tr><td>Processed</td><td>{{.Processed}}</td></tr>
<tr><td>Succeeded</td><td>{{.Succeeded}}</td></tr>
<tr><td>Failed</td><td>{{.Failed}}</td></tr>
<tr><td>Skipped</td><td>{{.Skipped}}</td></tr>
<tr><td>Total amount</td><td>{{.TotalAmount}}</td></tr>
<tr><td>Total fees</td><td>{{.TotalFees}}</td></tr>
</table>
{{- if .SkipReasons}}
<h3>Skip reasons</h3>
<ul>{{range .SkipReasons}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
{{- if .Errors}}
<h3>Errors</h3>
<ul>{{range .Errors}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
`)),
}

func renderOwner(kind Kind, data any) (string, error) {
	tmpl, ok := ownerTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.String(), nil
}
