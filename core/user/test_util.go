package user

import (
	"context"

	"github.com/trezcool/darasa/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose emails are sent synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	emailVerificationTimeoutDelta = conf.EmailVerificationTimeoutDelta
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) Create(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.createUser(ctx, nu)
	if err != nil {
		return User{}, err
	}
	if usr.Email != "" {
		// run synchronously
		svc.sendVerificationMail(usr)
	}
	return usr, nil
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *serviceMock) RequestEmailVerification(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsVerified {
		return ErrAlreadyVerified
	}
	// run synchronously
	svc.sendVerificationMail(usr)
	return nil
}
