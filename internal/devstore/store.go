// Package devstore holds the development backend's data in memory.
package devstore

import (
	"errors"
	"sync"
	"time"

	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInUse              = errors.New("still referenced")
)

// Store is safe for concurrent use
type Store struct {
	mu sync.RWMutex

	accounts map[string]*account
	byEmail  map[string]string
	subjects map[string]subjects.Subject
	papers   map[string]*papers.Paper
	files    map[string][]byte
	feedback map[string]*feedback.Feedback

	// bcrypt cost; lowered by tests
	cost int
	now  func() time.Time
}

type Option func(*Store)

// sets the bcrypt cost used for new passwords
func WithHashCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		subjects: make(map[string]subjects.Subject),
		papers:   make(map[string]*papers.Paper),
		files:    make(map[string][]byte),
		feedback: make(map[string]*feedback.Feedback),
		cost:     defaultCost,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newID() string {
	return uuid.NewString()
}
