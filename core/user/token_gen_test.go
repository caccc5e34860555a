package user

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour
	emailVerificationTimeoutDelta = 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "563c0e79-23f8-4d74-9855-46b8a14ab2c3",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: null.TimeFrom(now),
	}
	_ = usr.SetPassword("pwd")

	validToken := makeToken(usr, purposePasswordReset)
	verificationToken := makeToken(usr, purposeEmailVerification)

	// generate an expired token
	dayLate := passwordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := makeToken(usr, purposePasswordReset)
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		usr     User
		token   string
		purpose string
		wantErr error
	}{
		{name: "no token", usr: usr, purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "purpose mismatch", usr: usr, token: verificationToken, purpose: purposePasswordReset, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, purpose: purposePasswordReset, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken, purpose: purposePasswordReset},
		{name: "valid verification token", usr: usr, token: verificationToken, purpose: purposeEmailVerification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token, tt.purpose); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInvalidatedByStateChange(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour
	emailVerificationTimeoutDelta = 3 * 24 * time.Hour

	usr := User{ID: "c7b0adf5-3ac4-4568-bfd3-aebd6b0e7ec0", Email: "t@test.test"}
	_ = usr.SetPassword("pwd")

	t.Run("password change", func(t *testing.T) {
		token := makeToken(usr, purposePasswordReset)
		changed := usr
		_ = changed.SetPassword("new-pwd")
		if err := verifyToken(changed, token, purposePasswordReset); err != errInvalidToken {
			t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
		}
	})

	t.Run("login after request", func(t *testing.T) {
		token := makeToken(usr, purposePasswordReset)
		changed := usr
		changed.LastLogin = null.TimeFrom(time.Now())
		if err := verifyToken(changed, token, purposePasswordReset); err != errInvalidToken {
			t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
		}
	})

	t.Run("already verified", func(t *testing.T) {
		token := makeToken(usr, purposeEmailVerification)
		changed := usr
		changed.IsVerified = true
		if err := verifyToken(changed, token, purposeEmailVerification); err != errInvalidToken {
			t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
		}
	})
}
