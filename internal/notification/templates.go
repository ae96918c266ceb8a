package notification

import (
	"html/template"
	"strings"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
  <h2 style="text-align: center; color: #333;">ChatForge AI Verification</h2>
  <p style="font-size: 16px;">Hello,</p>
  <p style="font-size: 16px;">Thank you for signing up. Please use the following One-Time Password (OTP) to complete your registration:</p>
  <p style="text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px; margin: 20px 0; padding: 10px; background-color: #f4f4f4; border-radius: 5px;">{{.OTP}}</p>
  <p style="font-size: 16px;">This code will expire in 10 minutes.</p>
  <p style="font-size: 14px; color: #777;">If you did not request this, please ignore this email.</p>
  <hr style="border: none; border-top: 1px solid #ddd; margin: 20px 0;" />
  <p style="font-size: 12px; color: #aaa; text-align: center;">&copy; {{.Year}} ChatForge AI. All rights reserved.</p>
</div>`))

var acceptedTemplate = template.Must(template.New("accepted").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px; background-color: #f9fdf9;">
  <div style="text-align: center; padding-bottom: 20px; border-bottom: 1px solid #ddd;">
    <h2 style="color: #28a745;">Congratulations, {{.Name}}!</h2>
    <p style="font-size: 18px; color: #333;">Your inquiry for the <strong>{{.Plan}} Plan</strong> has been accepted.</p>
  </div>
  <div style="padding: 20px 0;">
    <p style="font-size: 16px; color: #555;">We are thrilled to begin the process of getting you set up. A member of our team will be reaching out to you within the next 24 hours to discuss the next steps, including payment and onboarding.</p>
    <p style="font-size: 16px; color: #555;">We're excited to have you on board!</p>
  </div>
  <div style="font-size: 14px; color: #777; text-align: center; padding-top: 20px; border-top: 1px solid #ddd;">
    <p>If you have any immediate questions, feel free to reply to this email.</p>
    <p>&mdash; The ChatForge AI Team</p>
  </div>
</div>`))

var rejectedTemplate = template.Must(template.New("rejected").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px; background-color: #fdf9f9;">
  <div style="text-align: center; padding-bottom: 20px; border-bottom: 1px solid #ddd;">
    <h2 style="color: #dc3545;">Update on Your ChatForge AI Inquiry</h2>
    <p style="font-size: 18px; color: #333;">Hello {{.Name}},</p>
  </div>
  <div style="padding: 20px 0;">
    <p style="font-size: 16px; color: #555;">Thank you for your interest in the <strong>{{.Plan}} Plan</strong>. We sincerely appreciate you taking the time to consider us.</p>
    <p style="font-size: 16px; color: #555;">After careful review, we have determined that we are unable to move forward with your inquiry at this time. We receive a high volume of requests and unfortunately cannot accommodate all of them.</p>
    <p style="font-size: 16px; color: #555;">We encourage you to explore our other plans and features, and we wish you the best in finding a solution that fits your needs.</p>
  </div>
  <div style="font-size: 14px; color: #777; text-align: center; padding-top: 20px; border-top: 1px solid #ddd;">
    <p>Thank you again for your interest in ChatForge AI.</p>
    <p>&mdash; The ChatForge AI Team</p>
  </div>
</div>`))

var directTemplate = template.Must(template.New("direct").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
  <h2 style="color: #333;">A Message from ChatForge AI</h2>
  <p style="font-size: 16px;">Hello,</p>
  <p style="font-size: 16px;">You have received the following message from an administrator:</p>
  <div style="background-color: #f4f4f4; border-left: 4px solid #007bff; padding: 15px; margin: 20px 0;">
    <p style="margin: 0; white-space: pre-wrap;">{{.Message}}</p>
  </div>
  <p style="font-size: 14px; color: #777;">Please note: This is a direct message and not a standard notification. If you have questions, you can reply directly to this email.</p>
</div>`))

func execute(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func VerificationEmail(to, otp string, now time.Time) (Message, error) {
	html, err := execute(otpTemplate, struct {
		OTP  string
		Year int
	}{otp, now.Year()})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Your ChatForge AI Verification Code", HTML: html}, nil
}

// SubmissionStatusEmail renders the reply to a plan inquiry. accepted selects
// between the two templates.
func SubmissionStatusEmail(to, name, plan string, accepted bool) (Message, error) {
	data := struct{ Name, Plan string }{name, plan}
	if accepted {
		html, err := execute(acceptedTemplate, data)
		if err != nil {
			return Message{}, err
		}
		return Message{To: to, Subject: "Your Inquiry for the " + plan + " Plan has been Accepted!", HTML: html}, nil
	}

	html, err := execute(rejectedTemplate, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Update on your ChatForge AI " + plan + " Plan Inquiry", HTML: html}, nil
}

func DirectMessageEmail(to, subject, message string) (Message, error) {
	html, err := execute(directTemplate, struct{ Message string }{message})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html, FromName: "ChatForge AI Admin"}, nil
}

// BulkEmail wraps admin supplied HTML, sent as is, for one recipient.
func BulkEmail(to, subject, html string) Message {
	return Message{To: to, Subject: subject, HTML: html}
}
