package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/pinvent/apiserver/internal/apperr"
	"github.com/pinvent/apiserver/internal/auth"
	"github.com/pinvent/apiserver/internal/mailer"
	"github.com/pinvent/apiserver/internal/notify"
	"github.com/pinvent/apiserver/internal/store"
	"github.com/pinvent/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxBioLength      = 250
	resetTokenTTL     = 30 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// ResetTokenRepository defines persistence operations for reset tickets.
type ResetTokenRepository interface {
	Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error)
	GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (types.ResetToken, error)
	DeleteByUser(ctx context.Context, userID int) error
	Delete(ctx context.Context, id int) error
}

// UserService encapsulates account, password and contact use-cases.
type UserService struct {
	users       UserRepository
	resets      ResetTokenRepository
	sender      mailer.Sender
	events      *notify.Publisher
	frontendURL string
	supportAddr string
}

func NewUserService(
	users UserRepository,
	resets ResetTokenRepository,
	sender mailer.Sender,
	events *notify.Publisher,
	frontendURL string,
	supportAddr string,
) *UserService {
	return &UserService{
		users:       users,
		resets:      resets,
		sender:      sender,
		events:      events,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		supportAddr: supportAddr,
	}
}

// Register creates a new account with a hashed password and defaulted
// profile fields.
func (s *UserService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || email == "" || password == "" {
		return types.User{}, apperr.New(apperr.KindValidation, "Please fill in all required fields")
	}
	if len(password) < minPasswordLength {
		return types.User{}, apperr.New(apperr.KindValidation, "Password must be up to 6 characters")
	}
	if !emailPattern.MatchString(email) {
		return types.User{}, apperr.New(apperr.KindValidation, "Please enter a valid email")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, apperr.New(apperr.KindConflict, "Email has already been used.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Photo:        types.DefaultPhoto,
		Phone:        types.DefaultPhone,
		Bio:          types.DefaultBio,
	})
	if err != nil {
		// Create races the pre-check above; the constraint decides.
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, apperr.New(apperr.KindConflict, "Email has already been used.")
		}
		return types.User{}, err
	}

	s.events.Publish(ctx, notify.EventUserRegistered, map[string]any{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// Login verifies credentials and returns the matching user.
func (s *UserService) Login(ctx context.Context, email, password string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, apperr.New(apperr.KindValidation, "Please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.New(apperr.KindNotFound, "User not found, please sign up")
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, apperr.New(apperr.KindUnauthorized, "Invalid email and password")
	}

	return user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.New(apperr.KindNotFound, "User not found")
		}
		return types.User{}, err
	}
	return user, nil
}

// ProfileUpdate carries the PATCH semantics of a profile update: nil
// fields are left as stored. Email and password never change here.
type ProfileUpdate struct {
	Name  *string
	Photo *string
	Phone *string
	Bio   *string
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Photo != nil {
		user.Photo = strings.TrimSpace(*update.Photo)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}

	if user.Name == "" {
		return types.User{}, apperr.New(apperr.KindValidation, "Please add a name")
	}
	if len(user.Bio) > maxBioLength {
		return types.User{}, apperr.New(apperr.KindValidation, "Bio must not be more than 250")
	}

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.New(apperr.KindNotFound, "User not found")
		}
		return types.User{}, err
	}
	return updated, nil
}

// ChangePassword verifies the old password and stores a hash of the new
// one.
func (s *UserService) ChangePassword(ctx context.Context, id int, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "User not found, please sign up")
		}
		return err
	}

	if oldPassword == "" || newPassword == "" {
		return apperr.New(apperr.KindValidation, "Please add old and new password")
	}
	if len(newPassword) < minPasswordLength {
		return apperr.New(apperr.KindValidation, "Password must be up to 6 characters")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.New(apperr.KindUnauthorized, "Old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

// ForgotPassword issues a fresh reset ticket for the account and mails
// the reset link. Any prior ticket for the user is removed first, so at
// most one ticket resolves at a time. The delete and insert are two
// unguarded writes; concurrent requests for the same user can interleave.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "User does not exist")
		}
		return err
	}

	if err := s.resets.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}

	clientToken, err := auth.NewResetToken(user.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	if _, err := s.resets.Create(ctx, types.ResetToken{
		UserID:    user.ID,
		TokenHash: auth.HashResetToken(clientToken),
		CreatedAt: now,
		ExpiresAt: now.Add(resetTokenTTL),
	}); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/resetpassword/%s", s.frontendURL, clientToken)
	message := fmt.Sprintf(`
	<h2>Hello %s</h2>
	<p>Please use the url below to reset your password</p>
	<p>This reset link is valid for only 30 minutes</p>
	<a href=%q clicktracking=off>%s</a>

	<p>Regards....</p>
	<p>Pinvent Team</p>
	`, user.Name, resetURL, resetURL)

	if err := s.sender.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Password Reset Request",
		HTML:    message,
	}); err != nil {
		// The ticket is already persisted; it stays usable until it
		// expires even though the link never arrived.
		return apperr.Wrap(apperr.KindDependency, "Email not sent, please try again", err)
	}

	s.events.Publish(ctx, notify.EventResetRequested, map[string]any{"user_id": user.ID})
	return nil
}

// ResetPassword consumes a reset ticket: it resolves the presented token
// by digest, stores a hash of the new password and returns the ticket so
// the caller can discard it after responding. Never-issued, consumed and
// expired tokens are indistinguishable to the caller.
func (s *UserService) ResetPassword(ctx context.Context, clientToken, newPassword string) (types.ResetToken, error) {
	if newPassword == "" {
		return types.ResetToken{}, apperr.New(apperr.KindValidation, "Please add a password")
	}
	if len(newPassword) < minPasswordLength {
		return types.ResetToken{}, apperr.New(apperr.KindValidation, "Password must be up to 6 characters")
	}

	ticket, err := s.resets.GetValidByHash(ctx, auth.HashResetToken(clientToken), time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ResetToken{}, apperr.New(apperr.KindNotFound, "Invalid or Expired Token")
		}
		return types.ResetToken{}, err
	}

	user, err := s.users.GetByID(ctx, ticket.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ResetToken{}, apperr.New(apperr.KindNotFound, "User not found")
		}
		return types.ResetToken{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return types.ResetToken{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return types.ResetToken{}, err
	}

	return ticket, nil
}

// DiscardTicket removes a consumed ticket. Called after the success
// response has been written; a failure only leaves a ticket that no
// longer matches any password and expires on its own.
func (s *UserService) DiscardTicket(ctx context.Context, ticketID int) {
	if err := s.resets.Delete(ctx, ticketID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("reset ticket %d not deleted: %v", ticketID, err)
	}
}

// Contact relays a contact form message to the support address, with the
// sender's email as reply-to.
func (s *UserService) Contact(ctx context.Context, userID int, subject, message string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "User not found, please sign up")
		}
		return err
	}

	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(message) == "" {
		return apperr.New(apperr.KindValidation, "Please add subject and message")
	}

	if err := s.sender.Send(ctx, mailer.Message{
		To:      s.supportAddr,
		ReplyTo: user.Email,
		Subject: subject,
		HTML:    message,
	}); err != nil {
		return apperr.Wrap(apperr.KindDependency, "Email not sent, please try again", err)
	}

	s.events.Publish(ctx, notify.EventContactMessage, map[string]any{"user_id": user.ID, "subject": subject})
	return nil
}
