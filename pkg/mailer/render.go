package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var activationHTML = template.Must(template.New(TemplateActivationCode).Parse(`<p>Hi {{.name}},</p>
<p>Your activation code is <strong>{{.code}}</strong>.</p>
<p>The code expires in a few minutes. If you did not create an account, ignore this email.</p>`))

var resetHTML = template.Must(template.New(TemplateResetCode).Parse(`<p>Hi {{.name}},</p>
<p>Your password reset code is <strong>{{.code}}</strong>.</p>
<p>The code expires in a few minutes. If you did not request a reset, ignore this email.</p>`))

// Render produces the subject, plain text and HTML bodies for a named
// template. Unknown template names are an error so the worker can dead-letter
// the job instead of sending an empty mail.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	var tpl *template.Template
	switch name {
	case TemplateActivationCode:
		subject = "Activate your account"
		text = fmt.Sprintf("Hi %v, your activation code is %v.", data["name"], data["code"])
		tpl = activationHTML
	case TemplateResetCode:
		subject = "Reset your password"
		text = fmt.Sprintf("Hi %v, your password reset code is %v.", data["name"], data["code"])
		tpl = resetHTML
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}
