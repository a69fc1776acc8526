package notify

import (
	"bytes"
	"html/template"
)

type Purpose string

const (
	PurposeSignup        Purpose = "SIGNUP"
	PurposeReturning     Purpose = "RETURNING"
	PurposeResetPassword Purpose = "FORGOT_PASSWORD"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2>{{.Heading}}</h2>
    <p>{{.Intro}}</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
    <p>This code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
  </body>
</html>`))

// OTPEmail renders the subject and html body for an OTP message.
func OTPEmail(code string, purpose Purpose) (string, string, error) {
	data := struct {
		Heading, Intro, Code string
	}{Code: code}

	var subject string
	switch purpose {
	case PurposeResetPassword:
		subject = "Password Reset Request - Your OTP"
		data.Heading = "Reset your password"
		data.Intro = "Use the code below to reset your password."
	case PurposeReturning:
		subject = "Welcome back! Your OTP for Account Verification"
		data.Heading = "Verify your account"
		data.Intro = "Use the code below to verify your account."
	default:
		subject = "Welcome! Your OTP for Account Activation"
		data.Heading = "Activate your account"
		data.Intro = "Use the code below to activate your account."
	}

	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
