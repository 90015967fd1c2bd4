package mail

import "fmt"

// ActivationMessage renders the email carrying a fresh activation secret.
func ActivationMessage(to, username, activationToken string) Message {
	body := fmt.Sprintf(
		"Hello, %s!\n\n"+
			"Thanks for registering at the webstore. To activate your account, send a POST\n"+
			"request to /api/v1/auth/activate-account with the token below.\n\n"+
			"Your activation token: %s\n",
		username, activationToken)
	return Message{To: to, Subject: "Verify your webstore account", Body: body}
}

// RecoveryMessage renders the email carrying a recovery carrier token.
func RecoveryMessage(to, username, recoveryToken string) Message {
	body := fmt.Sprintf(
		"Hello, %s!\n\n"+
			"A password recovery was requested for your account. To set a new password,\n"+
			"send a POST request to /api/v1/auth/recovery with the token below within\n"+
			"10 minutes.\n\n"+
			"Your recovery token: %s\n",
		username, recoveryToken)
	return Message{To: to, Subject: "Recover your webstore account", Body: body}
}
