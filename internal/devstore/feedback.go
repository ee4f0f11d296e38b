package devstore

import (
	"slices"

	"codeberg.org/pyqpapers/portal/pyq/feedback"
)

func (s *Store) SubmitFeedback(userID string, sub feedback.Submission) (feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return feedback.Feedback{}, ErrNotFound
	}

	if sub.PaperID != "" {
		if _, ok := s.papers[sub.PaperID]; !ok {
			return feedback.Feedback{}, ErrNotFound
		}
	}

	fb := &feedback.Feedback{
		ID:        newID(),
		User:      &feedback.Author{ID: acct.user.ID, Name: acct.user.Name, Email: acct.user.Email},
		PaperID:   sub.PaperID,
		Subject:   sub.Subject,
		Message:   sub.Message,
		Rating:    sub.Rating,
		Status:    feedback.StatusPending,
		CreatedAt: s.now().UTC(),
	}

	s.feedback[fb.ID] = fb
	return *fb, nil
}

// all feedback, newest first
func (s *Store) Feedback() []feedback.Feedback {
	return s.filterFeedback(func(*feedback.Feedback) bool { return true })
}

func (s *Store) FeedbackBy(userID string) []feedback.Feedback {
	return s.filterFeedback(func(fb *feedback.Feedback) bool {
		return fb.User != nil && fb.User.ID == userID
	})
}

func (s *Store) FeedbackFor(paperID string) []feedback.Feedback {
	return s.filterFeedback(func(fb *feedback.Feedback) bool {
		return fb.PaperID == paperID
	})
}

func (s *Store) filterFeedback(keep func(*feedback.Feedback) bool) []feedback.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]feedback.Feedback, 0)
	for _, fb := range s.feedback {
		if keep(fb) {
			out = append(out, *fb)
		}
	}

	slices.SortFunc(out, func(a, b feedback.Feedback) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}

func (s *Store) SetFeedbackStatus(id, status, response string) (feedback.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb, ok := s.feedback[id]
	if !ok {
		return feedback.Feedback{}, ErrNotFound
	}

	fb.Status = status
	if response != "" {
		fb.Response = response
	}

	return *fb, nil
}

func (s *Store) DeleteFeedback(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feedback[id]; !ok {
		return ErrNotFound
	}

	delete(s.feedback, id)
	return nil
}
