package user

import (
	"crypto/rand"
	"math/big"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const (
	otpLength   = 12
	otpAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789@#%+"
)

// GenerateOneTimePassword returns a random password for a newly issued account.
// Ambiguous characters (0/O, 1/l/I) are left out since the password is read from an email.
func GenerateOneTimePassword() (string, error) {
	max := big.NewInt(int64(len(otpAlphabet)))
	otp := make([]byte, otpLength)
	for i := range otp {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		otp[i] = otpAlphabet[n.Int64()]
	}
	return string(otp), nil
}

// sendCredentialsMail hands the credentials to the mail service, which delivers them asynchronously.
// Delivery failures are the mail service's concern: the account exists either way.
func (svc *Service) sendCredentialsMail(usr User, creds Credentials) {
	if !usr.Email.Valid || usr.Email.String == "" {
		svc.logger.Warn("credentials not delivered: account has no email", map[string]interface{}{
			"user_id": usr.ID,
			"role":    usr.Role,
		})
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email.String}},
		Subject:      "Your " + creds.TenantName + " account",
		TemplateName: "credentials",
		TemplateData: creds,
	})
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email.String}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{"UID": EncodeUID(usr), "Token": token},
	})
	return nil
}
