package identity

import (
	"context"
	"fmt"
)

// Notifier delivers transactional email. The SMTP implementation lives in
// internal/mail; the service logs and continues when delivery fails so that
// a broken relay never blocks registration or password recovery.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

func welcomeEmail(firstName string) (subject, html string) {
	subject = "Welcome aboard"
	html = fmt.Sprintf(`<html><body>
<h2>Welcome, %s!</h2>
<p>Your account has been created. You can sign in right away.</p>
<p>If you did not create this account, please contact support.</p>
</body></html>`, firstName)
	return subject, html
}

func resetPasswordEmail(link string) (subject, html string) {
	subject = "Reset your password"
	html = fmt.Sprintf(`<html><body>
<h2>Password reset requested</h2>
<p>Click the link below to choose a new password. The link expires in one hour.</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
</body></html>`, link)
	return subject, html
}
