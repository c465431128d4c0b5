package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// totpSkew is the accepted clock-drift tolerance in 30-second steps on either
// side of the current one.
const totpSkew = 2

// TOTPManager generates and verifies time-based one-time passwords.
type TOTPManager struct {
	issuer string
}

func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// SetupResult is what the setup endpoint hands back once. The secret is never
// returned again after this response.
type SetupResult struct {
	Secret     string
	OtpauthURI string
	QRDataURI  string
}

// GenerateSecret creates a fresh base32 secret, its otpauth provisioning URI
// and a PNG QR code encoded as a data URI.
func (tm *TOTPManager) GenerateSecret(accountEmail string) (*SetupResult, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  32,
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(200)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &SetupResult{
		Secret:     key.Secret(),
		OtpauthURI: key.URL(),
		QRDataURI:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Verify checks a submitted code against the account secret at the current
// wall-clock time.
func (tm *TOTPManager) Verify(secret, code string) bool {
	return tm.VerifyAt(secret, code, time.Now())
}

// VerifyAt checks a code at an explicit instant. Split out so expiry behavior
// is testable without sleeping.
func (tm *TOTPManager) VerifyAt(secret, code string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
