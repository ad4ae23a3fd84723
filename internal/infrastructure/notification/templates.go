package notification

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// VerificationMail builds the mail carrying an email verification code.
// With a base URL the mail also links to the confirmation page.
func VerificationMail(to, code, baseURL string, ttl time.Duration) Message {
	text := fmt.Sprintf("Your neuronek verification code is: %s\nIt expires in %s.", code, humanize(ttl))
	body := fmt.Sprintf("<h2>Verify your email</h2><p>Your verification code is <strong>%s</strong>.</p>", html.EscapeString(code))
	if baseURL != "" {
		link := strings.TrimSuffix(baseURL, "/") + "/verify?code=" + url.QueryEscape(code)
		text += "\nConfirm here: " + link
		body += fmt.Sprintf(`<p><a href="%s">Confirm your email</a></p>`, html.EscapeString(link))
	}
	body += fmt.Sprintf("<p>The code expires in %s.</p>", humanize(ttl))
	return Message{To: to, Subject: "Verify your neuronek account", Text: text, HTML: body}
}

// RecoveryMail builds the mail carrying a password reset code.
func RecoveryMail(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your neuronek password",
		Text: fmt.Sprintf("Use this code to reset your password: %s\nIt expires in %s. Ignore this mail if you did not ask for a reset.",
			code, humanize(ttl)),
		HTML: fmt.Sprintf("<h2>Password reset</h2><p>Use this code to reset your password: <strong>%s</strong></p><p>It expires in %s. Ignore this mail if you did not ask for a reset.</p>",
			html.EscapeString(code), humanize(ttl)),
	}
}

func humanize(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
