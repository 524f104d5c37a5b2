package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/storage"
	"go.uber.org/zap"
)

// RegistrationRequest is the aggregated onboarding candidate.
type RegistrationRequest struct {
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	Email       string              `json:"email"`
	PhoneNumber string              `json:"phoneNumber"`
	Password    string              `json:"password"`
	Preferences profile.Preferences `json:"preferences"`
}

// RegisteredUserRecord is one entry of the append-only account list.
type RegisteredUserRecord struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	User     profile.UserProfile `json:"user"`
}

// AuthResult is returned by Authenticate and Register.
type AuthResult struct {
	Token   string
	User    profile.UserProfile
	Message string
}

// Authenticate succeeds for the seed pair or an exact email and password
// match in the registered-user list.
func (s *Service) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	if err := s.wait(ctx, metrics.OpAuthenticate, s.latency.Login); err != nil {
		return AuthResult{}, err
	}

	var user profile.UserProfile
	switch {
	case email == profile.DemoEmail && password == profile.DemoPassword:
		user = s.demoProfile()
	default:
		records, err := s.Records(ctx)
		if err != nil {
			return AuthResult{}, err
		}
		found := false
		for _, rec := range records {
			if rec.Email == email && rec.Password == password {
				user = rec.User
				found = true
				break
			}
		}
		if !found {
			s.logger.Debug("authentication rejected", zap.String("email", email))
			return AuthResult{}, ErrInvalidCredentials
		}
	}

	tok, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok, User: user, Message: MessageLoginSuccess}, nil
}

// Register creates an onboarded profile, appends it to the registered-user
// list and returns a fresh token.
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (AuthResult, error) {
	if err := s.wait(ctx, metrics.OpRegister, s.latency.Register); err != nil {
		return AuthResult{}, err
	}
	if req.Email == profile.DemoEmail {
		s.metrics.Inc(metrics.RegistrationDuplicate)
		return AuthResult{}, ErrDuplicateEmail
	}

	user := profile.UserProfile{
		ID:          s.newID(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Preferences: req.Preferences,
		CreatedAt:   s.now(),
		IsOnboarded: true,
	}
	user = user.Clone()

	data, err := json.Marshal(RegisteredUserRecord{Email: req.Email, Password: req.Password, User: user})
	if err != nil {
		return AuthResult{}, fmt.Errorf("encode registered user: %w", err)
	}

	if err := s.appendRecord(ctx, req.Email, string(data)); err != nil {
		return AuthResult{}, err
	}

	tok, err := s.issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("account registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return AuthResult{Token: tok, User: user, Message: MessageRegistrationSuccess}, nil
}

func (s *Service) appendRecord(ctx context.Context, email, data string) error {
	if s.duplicates != DuplicateAny {
		return s.store.Append(ctx, storage.KeyRegisteredUsers, data)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()
	records, err := s.Records(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Email == email {
			s.metrics.Inc(metrics.RegistrationDuplicate)
			return ErrDuplicateEmail
		}
	}
	return s.store.Append(ctx, storage.KeyRegisteredUsers, data)
}

// Records returns the registered-user list in insertion order. Entries that
// fail to decode are skipped.
func (s *Service) Records(ctx context.Context) ([]RegisteredUserRecord, error) {
	raw, err := s.store.List(ctx, storage.KeyRegisteredUsers)
	if err != nil {
		return nil, err
	}
	out := make([]RegisteredUserRecord, 0, len(raw))
	for i, item := range raw {
		var rec RegisteredUserRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.Warn("skipping corrupt registered user record", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetCurrentUser returns the demo profile regardless of which token the
// caller holds.
func (s *Service) GetCurrentUser(ctx context.Context) (profile.UserProfile, error) {
	if err := s.wait(ctx, metrics.OpCurrentUser, s.latency.CurrentUser); err != nil {
		return profile.UserProfile{}, err
	}
	return s.demoProfile(), nil
}

// UpdateUser merges patch onto the stored demo profile, keeps the merge and
// returns it.
func (s *Service) UpdateUser(ctx context.Context, patch profile.Patch) (profile.UserProfile, error) {
	if err := s.wait(ctx, metrics.OpUpdateUser, s.latency.UpdateUser); err != nil {
		return profile.UserProfile{}, err
	}
	s.demoMu.Lock()
	defer s.demoMu.Unlock()
	s.demo = s.demo.Apply(patch)
	return s.demo.Clone(), nil
}

// Logout acknowledges the end of a session.
func (s *Service) Logout(ctx context.Context) error {
	return s.wait(ctx, metrics.OpLogout, s.latency.Logout)
}
