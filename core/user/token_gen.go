package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// token purposes; a token minted for one purpose never verifies for another
const (
	purposePasswordReset     = "password-reset"
	purposeEmailVerification = "email-verification"
)

var (
	salt    = []byte("darasa.core.user.token_gen")
	NowFunc = time.Now // mockable

	// set by NewService
	secretKey                     []byte
	passwordResetTimeoutDelta     time.Duration
	emailVerificationTimeoutDelta time.Duration

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakePasswordResetToken mints a token accepted by Service.ResetPassword.
func MakePasswordResetToken(usr User) string {
	return makeToken(usr, purposePasswordReset)
}

// MakeEmailVerificationToken mints a token accepted by Service.VerifyEmail.
func MakeEmailVerificationToken(usr User) string {
	return makeToken(usr, purposeEmailVerification)
}

// makeToken generates a timed token for a given User, bound to a purpose.
// The token is invalidated by any change to the user state it signs over
// (password hash, last login, verification status).
func makeToken(usr User, purpose string) string {
	return _makeTokenWithTimestamp(usr, purpose, _numDaysSince2001(NowFunc()))
}

// verifyToken checks that a token for a given User and purpose is valid.
func verifyToken(usr User, token, purpose string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken := _makeTokenWithTimestamp(usr, purpose, ts)
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (_numDaysSince2001(time.Now()) - ts) > int(_timeoutDelta(purpose)/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func _timeoutDelta(purpose string) time.Duration {
	if purpose == purposeEmailVerification {
		return emailVerificationTimeoutDelta
	}
	return passwordResetTimeoutDelta
}

func _makeTokenWithTimestamp(usr User, purpose string, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, _sign(_hashValue(usr, purpose, ts)))
}

func _numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func _sign(val []byte) string {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val) // never returns an error
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func _hashValue(usr User, purpose string, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.WriteString(purpose)
	val.Write(usr.PasswordHash)
	if usr.LastLogin.Valid {
		val.WriteString(usr.LastLogin.Time.String())
	}
	val.WriteString(strconv.FormatBool(usr.IsVerified))
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
