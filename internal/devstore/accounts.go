package devstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/pyq/users"
	"golang.org/x/crypto/bcrypt"
)

const defaultCost = bcrypt.DefaultCost

type account struct {
	user         users.User
	passwordHash []byte
	googleID     string
	tokenVersion int
}

// fields a user may change on their own profile
type ProfileChanges struct {
	Name         *string
	Email        *string
	ProfileImage *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// registers a password account
func (s *Store) CreateAccount(name, email, password string, isAdmin bool) (users.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return users.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if _, taken := s.byEmail[email]; taken {
		return users.User{}, ErrEmailTaken
	}

	acct := &account{
		user: users.User{
			ID:        newID(),
			Name:      strings.TrimSpace(name),
			Email:     email,
			IsAdmin:   isAdmin,
			Status:    users.StatusActive,
			CreatedAt: s.now().UTC(),
		},
		passwordHash: hash,
	}

	s.accounts[acct.user.ID] = acct
	s.byEmail[email] = acct.user.ID

	return acct.user, nil
}

// checks an email and password pair
func (s *Store) Authenticate(email, password string) (users.User, error) {
	s.mu.RLock()
	acct, ok := s.lookupEmail(email)
	var hash []byte
	if ok {
		hash = acct.passwordHash
	}
	s.mu.RUnlock()

	// google-only accounts have no password
	if !ok || len(hash) == 0 {
		return users.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return users.User{}, ErrInvalidCredentials
	}

	return s.User(acct.user.ID)
}

// links or creates the account for a verified Google profile
func (s *Store) FindOrCreateGoogle(profile auth.GoogleProfile) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct, ok := s.lookupEmail(profile.Email); ok {
		acct.googleID = profile.GoogleID
		if acct.user.ProfileImage == "" {
			acct.user.ProfileImage = profile.AvatarURL
		}
		return acct.user, nil
	}

	name := profile.Name
	if name == "" {
		name, _, _ = strings.Cut(profile.Email, "@")
	}

	acct := &account{
		user: users.User{
			ID:           newID(),
			Name:         name,
			Email:        normalizeEmail(profile.Email),
			ProfileImage: profile.AvatarURL,
			Status:       users.StatusActive,
			CreatedAt:    s.now().UTC(),
		},
		googleID: profile.GoogleID,
	}

	s.accounts[acct.user.ID] = acct
	s.byEmail[acct.user.Email] = acct.user.ID

	return acct.user, nil
}

func (s *Store) lookupEmail(email string) (*account, bool) {
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, false
	}

	acct, ok := s.accounts[id]
	return acct, ok
}

func (s *Store) User(id string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return users.User{}, ErrNotFound
	}

	return acct.user, nil
}

// implements auth.AccountLookup
func (s *Store) Account(_ context.Context, id string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return auth.Account{}, auth.ErrUnknownAccount
	}

	return acct.authAccount(), nil
}

func (a *account) authAccount() auth.Account {
	return auth.Account{
		ID:           a.user.ID,
		Email:        a.user.Email,
		IsAdmin:      a.user.IsAdmin,
		Blocked:      a.user.Blocked(),
		TokenVersion: a.tokenVersion,
	}
}

func (s *Store) UpdateProfile(id string, changes ProfileChanges) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return users.User{}, ErrNotFound
	}

	if changes.Email != nil {
		email := normalizeEmail(*changes.Email)
		if owner, taken := s.byEmail[email]; taken && owner != id {
			return users.User{}, ErrEmailTaken
		}

		delete(s.byEmail, acct.user.Email)
		s.byEmail[email] = id
		acct.user.Email = email
	}

	if changes.Name != nil {
		acct.user.Name = strings.TrimSpace(*changes.Name)
	}

	if changes.ProfileImage != nil {
		acct.user.ProfileImage = *changes.ProfileImage
	}

	return acct.user, nil
}

// replaces the password and revokes every outstanding token
func (s *Store) ChangePassword(id, current, next string) (auth.Account, error) {
	s.mu.RLock()
	acct, ok := s.accounts[id]
	var hash []byte
	if ok {
		hash = acct.passwordHash
	}
	s.mu.RUnlock()

	if !ok {
		return auth.Account{}, ErrNotFound
	}

	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(current)) != nil {
		return auth.Account{}, ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return auth.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct.passwordHash = newHash
	acct.tokenVersion++

	return acct.authAccount(), nil
}

// revokes every outstanding token of the account
func (s *Store) RevokeTokens(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}

	acct.tokenVersion++
	return nil
}

// all accounts, newest first
func (s *Store) Users() []users.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]users.User, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct.user)
	}

	slices.SortFunc(out, func(a, b users.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}

func (s *Store) SetRole(id string, isAdmin bool) (users.User, error) {
	return s.mutateUser(id, func(u *users.User) {
		u.IsAdmin = isAdmin
	})
}

func (s *Store) SetStatus(id, status string) (users.User, error) {
	return s.mutateUser(id, func(u *users.User) {
		u.Status = status
	})
}

func (s *Store) mutateUser(id string, fn func(*users.User)) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return users.User{}, ErrNotFound
	}

	fn(&acct.user)
	return acct.user, nil
}

func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}

	delete(s.byEmail, acct.user.Email)
	delete(s.accounts, id)

	return nil
}

// registration counts for the admin dashboard, last seven days
func (s *Store) UserStats() users.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := users.Stats{TotalUsers: len(s.accounts)}

	today := s.now().UTC().Truncate(24 * time.Hour)
	daily := make(map[string]int)

	for _, acct := range s.accounts {
		if acct.user.IsAdmin {
			stats.AdminUsers++
		} else {
			stats.RegularUsers++
		}

		daily[acct.user.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(time.DateOnly)
		stats.DailyRegistrations = append(stats.DailyRegistrations, users.DailyCount{Date: day, Count: daily[day]})
	}

	return stats
}
