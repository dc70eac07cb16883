package storefront

import (
	"context"

	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

var (
	_ command.Commander[RegisterAccountMessage] = (*RegisterAccountHandler)(nil)
	_ command.Commander[VerifyOTPMessage]       = (*VerifyOTPHandler)(nil)
)

// RegisterAccountMessage asks for a pending account and an emailed code.
type RegisterAccountMessage struct {
	Input      RegisterInput
	OnResponse func(*Account)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountHandler struct {
	accounts *AccountService
}

func NewRegisterAccountHandler(accounts *AccountService) *RegisterAccountHandler {
	return &RegisterAccountHandler{accounts: accounts}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		account, err := h.accounts.Register(ctx, event.Input)
		if err != nil {
			return err
		}
		if event.OnResponse != nil {
			event.OnResponse(account)
		}
		return nil
	}
}

// VerifyOTPMessage activates an account and receives its first token.
type VerifyOTPMessage struct {
	Input      VerifyOTPInput
	OnResponse func(account *Account, token string)
}

func (e VerifyOTPMessage) Type() string { return "account.verify_otp" }

type VerifyOTPHandler struct {
	accounts *AccountService
}

func NewVerifyOTPHandler(accounts *AccountService) *VerifyOTPHandler {
	return &VerifyOTPHandler{accounts: accounts}
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, event VerifyOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during otp verification",
		)
	default:
		account, token, err := h.accounts.VerifyOTP(ctx, event.Input)
		if err != nil {
			return err
		}
		if event.OnResponse != nil {
			event.OnResponse(account, token)
		}
		return nil
	}
}
