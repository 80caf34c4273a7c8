// Package notify sends the transactional emails of the auth flows.
//
// Email is a fire-effect: callers enqueue a Message on the Dispatcher and
// carry on. A failed send is logged and counted, never returned to the
// request that triggered it.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind names the email for logs and metrics.
type Kind string

const (
	KindVerification Kind = "verification"
	KindWelcome      Kind = "welcome"
	KindReset        Kind = "password_reset"
	KindResetSuccess Kind = "password_reset_success"
)

// Message is one rendered email.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Text    string
	HTML    string
}

var templates = template.Must(template.New("mail").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: linear-gradient(to right, #6366f1, #8b5cf6); padding: 20px; text-align: center;">
<h1 style="color: white; margin: 0;">{{.Title}}</h1>
</div>
<div style="background-color: #f9f9f9; padding: 20px; border-radius: 0 0 5px 5px;">
{{template "body" .}}
<p>Best regards,<br>The HackHub Team</p>
</div>
</body></html>{{end}}`))

// Each kind is rendered by a clone of the layout with its own "body".
var bodies = map[Kind]string{
	KindVerification: `<p>Hello,</p>
<p>Thank you for signing up! Your verification code is:</p>
<div style="text-align: center; margin: 30px 0;">
<span style="font-size: 32px; font-weight: bold; letter-spacing: 5px; color: #6366f1;">{{.Code}}</span>
</div>
<p>Enter this code on the verification page to complete your registration.</p>
<p>This code will expire in 10 minutes for security reasons.</p>
<p>If you didn't create an account with us, please ignore this email.</p>`,

	KindWelcome: `<p>Hello {{.Name}},</p>
<p>Your email is verified and your account is ready.</p>
<p>Create a team, invite your friends and start building.</p>`,

	KindReset: `<p>Hello,</p>
<p>We received a request to reset your password. If you didn't make this request, please ignore this email.</p>
<p>To reset your password, click the button below:</p>
<div style="text-align: center; margin: 30px 0;">
<a href="{{.URL}}" style="background-color: #6366f1; color: white; padding: 12px 20px; text-decoration: none; border-radius: 5px; font-weight: bold;">Reset Password</a>
</div>
<p>This link will expire in 1 hour for security reasons.</p>`,

	KindResetSuccess: `<p>Hello,</p>
<p>Your password has been successfully reset.</p>
<p>If you did not initiate this password reset, please contact our support team immediately.</p>`,
}

var rendered = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, body := range bodies {
		t := template.Must(templates.Clone())
		template.Must(t.New("body").Parse(body))
		out[kind] = t
	}
	return out
}()

func render(kind Kind, data any) (string, error) {
	t, ok := rendered[kind]
	if !ok {
		return "", fmt.Errorf("notify: no template for %s", kind)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("notify: rendering %s: %w", kind, err)
	}
	return buf.String(), nil
}

func build(kind Kind, to, subject, text string, data map[string]any) (Message, error) {
	data["Title"] = subject
	html, err := render(kind, data)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, To: to, Subject: subject, Text: text, HTML: html}, nil
}

func VerificationMessage(to, code string) (Message, error) {
	return build(KindVerification, to, "Verify Your Email",
		"Your verification code is "+code+". It expires in 10 minutes.",
		map[string]any{"Code": code})
}

func WelcomeMessage(to, name string) (Message, error) {
	return build(KindWelcome, to, "Welcome to HackHub",
		"Hello "+name+", your account is ready.",
		map[string]any{"Name": name})
}

func ResetMessage(to, resetURL string) (Message, error) {
	return build(KindReset, to, "Reset your Password",
		"Reset your password within 1 hour: "+resetURL,
		map[string]any{"URL": template.URL(resetURL)})
}

func ResetSuccessMessage(to string) (Message, error) {
	return build(KindResetSuccess, to, "Password Reset Successful",
		"Your password has been reset.",
		map[string]any{})
}
