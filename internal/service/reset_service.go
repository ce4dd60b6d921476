package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
	"github.com/njprem/accountd/internal/util"
)

const resetSubject = "Reset your password"

// EmailSender delivers a plain-text message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type ResetOptions struct {
	TokenTTL       time.Duration
	LinkBaseURL    string
	RevokeSessions bool
}

type ResetService struct {
	users  ports.UserRepository
	resets ports.ResetRepository
	hasher util.PasswordHasher
	codec  *util.TokenCodec
	sender EmailSender
	opts   ResetOptions
	now    func() time.Time
}

func NewResetService(users ports.UserRepository, resets ports.ResetRepository, hasher util.PasswordHasher, codec *util.TokenCodec, sender EmailSender, opts ResetOptions) *ResetService {
	return &ResetService{
		users:  users,
		resets: resets,
		hasher: hasher,
		codec:  codec,
		sender: sender,
		opts:   opts,
		now:    time.Now,
	}
}

// RequestReset records a reset attempt and emails a single-use link for it.
// Earlier attempts for the same account stay redeemable.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)
	if err := validateFields(field{"email", email, util.KindEmail}); err != nil {
		return err
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if isNotFound(err) {
			return ErrInvalidCredentials
		}
		return storeErr("find user by email", err)
	}

	record := domain.NewResetRecord(email, s.now())
	if err := s.resets.Create(ctx, record); err != nil {
		return storeErr("create reset record", err)
	}
	token, err := s.codec.IssueReset(email, record.ID, s.opts.TokenTTL)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, email, resetSubject, s.resetBody(token)); err != nil {
		return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}
	return nil
}

// RedeemReset sets a new password from a reset token. The password write and
// the record consume commit together, so a redemption that reports failure
// leaves the stored password untouched and the link as it was.
func (s *ResetService) RedeemReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.codec.VerifyReset(token)
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if err := validateFields(field{"password", newPassword, util.KindPassword}); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return storeErr("find user by email", err)
	}
	record, err := s.resets.FindByID(ctx, claims.ResetID)
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidResetLink
		}
		return storeErr("find reset record", err)
	}
	if record.Email != claims.Email {
		return ErrInvalidResetLink
	}
	if record.Expire {
		return ErrExpiredLink
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.resets.Redeem(ctx, record.ID, user.ID, hash); err != nil {
		switch {
		case errors.Is(err, ports.ErrAlreadyConsumed):
			return ErrExpiredLink
		case isNotFound(err):
			return ErrUserNotFound
		default:
			return storeErr("redeem reset record", err)
		}
	}
	if s.opts.RevokeSessions {
		if err := s.users.ClearTokens(ctx, user.ID); err != nil && !isNotFound(err) {
			return storeErr("clear tokens", err)
		}
	}
	return nil
}

func (s *ResetService) resetLink(token string) string {
	base := strings.TrimRight(s.opts.LinkBaseURL, "/")
	return base + "/api/user/updatepassword?token=" + url.QueryEscape(token)
}

func (s *ResetService) resetBody(token string) string {
	var b strings.Builder
	b.WriteString("A password reset was requested for your account.\n\n")
	b.WriteString("Open the link below to choose a new password:\n")
	b.WriteString(s.resetLink(token))
	b.WriteString("\n\nThe link works once")
	if s.opts.TokenTTL > 0 {
		fmt.Fprintf(&b, " and expires in %s", s.opts.TokenTTL)
	}
	b.WriteString(". If you did not ask for this, ignore this email.\n")
	return b.String()
}
