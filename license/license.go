// Package license derives and checks activation codes. A code is a pure
// function of the master secret, the business name, the device id and the
// calendar day it was issued on, so it can be re-derived for comparison
// without ever being stored.
package license

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultWindowDays bounds how far back ValidateWindow re-derives codes.
// Codes issued earlier than this can only be confirmed through a stored
// license record.
const DefaultWindowDays = 30

const (
	derivationMarker = "PAYANTE"
	tokenLength      = 12
	dayLayout        = "20060102"
)

type Engine struct {
	Secret string
	// Now is the clock used for DeriveToday and ValidateWindow.
	// Nil means time.Now.
	Now func() time.Time
}

func NewEngine(secret string) *Engine {
	return &Engine{Secret: secret, Now: time.Now}
}

// Derive computes the activation code for the given identifiers and
// calendar day: sha256 over secret + uppercased business name + device id +
// marker + YYYYMMDD, first 12 hex characters uppercased and grouped as
// XXXX-XXXX-XXXX. Deterministic: same inputs and day, same code.
func (e *Engine) Derive(businessName, deviceID string, day time.Time) string {
	base := e.Secret + strings.ToUpper(businessName) + deviceID + derivationMarker + day.Format(dayLayout)
	sum := sha256.Sum256([]byte(base))
	token := strings.ToUpper(hex.EncodeToString(sum[:])[:tokenLength])
	return Format(token)
}

// DeriveToday derives the code for the current calendar day.
func (e *Engine) DeriveToday(businessName, deviceID string) string {
	return e.Derive(businessName, deviceID, e.now())
}

// ValidateWindow reports whether candidate matches a code derived for the
// supplied identifiers on any of the trailing windowDays calendar days,
// today included. Comparison ignores case, hyphens and surrounding space.
func (e *Engine) ValidateWindow(candidate, businessName, deviceID string, windowDays int) bool {
	token := Normalize(candidate)
	if len(token) != tokenLength {
		return false
	}

	now := e.now()
	for i := 0; i < windowDays; i++ {
		day := now.AddDate(0, 0, -i)
		if Normalize(e.Derive(businessName, deviceID, day)) == token {
			return true
		}
	}
	return false
}

// Normalize reduces a candidate code to a bare uppercase token: surrounding
// whitespace trimmed, hyphens and inner spaces removed.
func Normalize(candidate string) string {
	s := strings.ToUpper(strings.TrimSpace(candidate))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// Format groups a bare 12-character token into the canonical
// XXXX-XXXX-XXXX presentation. Tokens of any other length pass through.
func Format(token string) string {
	if len(token) != tokenLength {
		return token
	}
	return token[0:4] + "-" + token[4:8] + "-" + token[8:12]
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
