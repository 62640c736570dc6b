package email

import (
	"fmt"
	"net/smtp"
	"time"

	"recusapp.app/cloud/internal/logger"
)

// Sender delivers plain-text mail over SMTP.
type Sender struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (s *Sender) Configured() bool {
	return s.Host != "" && s.Port != "" && s.User != "" && s.Pass != ""
}

func (s *Sender) Send(to, subject, body string) error {
	if !s.Configured() {
		logger.Error("SMTP configuration missing")
		return fmt.Errorf("SMTP configuration missing")
	}

	from := s.From
	if from == "" {
		from = s.User
	}

	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// SendActivationCode mails the freshly issued code to the payer.
func (s *Sender) SendActivationCode(to, code, businessName string, expiresAt time.Time) error {
	body := ActivationCodeBody(code, businessName, expiresAt)
	return s.Send(to, "Votre code d'activation RecusApp", body)
}

// ActivationCodeBody renders the plain-text license email.
func ActivationCodeBody(code, businessName string, expiresAt time.Time) string {
	return fmt.Sprintf(`Bonjour,

Merci pour votre achat ! Votre licence RecusApp est activée.

VOTRE LICENCE
Code d'activation : %s
Entreprise : %s
Valable jusqu'au : %s

POUR COMMENCER
1. Ouvrez RecusApp sur votre appareil
2. Allez dans Paramètres > Licence
3. Saisissez votre code : %s

Besoin d'aide ? Répondez simplement à cet email.

L'équipe RecusApp`,
		code,
		businessName,
		expiresAt.Format("02/01/2006"),
		code)
}
