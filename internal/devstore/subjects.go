package devstore

import (
	"slices"
	"strings"

	"codeberg.org/pyqpapers/portal/pyq/subjects"
)

func (s *Store) CreateSubject(req subjects.CreateRequest) (subjects.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	for _, existing := range s.subjects {
		if strings.EqualFold(existing.Name, name) && existing.Year == req.Year && existing.Semester == req.Semester {
			return subjects.Subject{}, ErrInUse
		}
	}

	subject := subjects.Subject{
		ID:        newID(),
		Name:      name,
		Year:      req.Year,
		Semester:  req.Semester,
		CreatedAt: s.now().UTC(),
	}

	s.subjects[subject.ID] = subject
	return subject, nil
}

// all subjects ordered by year, semester and name
func (s *Store) Subjects() []subjects.Subject {
	return s.filterSubjects(func(subjects.Subject) bool { return true })
}

func (s *Store) SubjectsFor(year, semester string) []subjects.Subject {
	return s.filterSubjects(func(sub subjects.Subject) bool {
		return sub.Year == year && sub.Semester == semester
	})
}

func (s *Store) filterSubjects(keep func(subjects.Subject) bool) []subjects.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]subjects.Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		if keep(sub) {
			out = append(out, sub)
		}
	}

	slices.SortFunc(out, compareSubjects)
	return out
}

func compareSubjects(a, b subjects.Subject) int {
	if c := slices.Index(subjects.Years, a.Year) - slices.Index(subjects.Years, b.Year); c != 0 {
		return c
	}

	if c := slices.Index(subjects.Semesters, a.Semester) - slices.Index(subjects.Semesters, b.Semester); c != 0 {
		return c
	}

	return strings.Compare(a.Name, b.Name)
}

// subjects nested by year then semester, skipping empty groups
func (s *Store) GroupedSubjects() []subjects.YearGroup {
	all := s.Subjects()

	var groups []subjects.YearGroup
	for _, sub := range all {
		if len(groups) == 0 || groups[len(groups)-1].Year != sub.Year {
			groups = append(groups, subjects.YearGroup{Year: sub.Year})
		}

		year := &groups[len(groups)-1]
		if len(year.Semesters) == 0 || year.Semesters[len(year.Semesters)-1].Semester != sub.Semester {
			year.Semesters = append(year.Semesters, subjects.SemesterGroup{Semester: sub.Semester})
		}

		sem := &year.Semesters[len(year.Semesters)-1]
		sem.Subjects = append(sem.Subjects, sub)
	}

	if groups == nil {
		return []subjects.YearGroup{}
	}

	return groups
}

func (s *Store) Subject(id string) (subjects.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok {
		return subjects.Subject{}, ErrNotFound
	}

	return sub, nil
}

// removes a subject no paper refers to
func (s *Store) DeleteSubject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[id]; !ok {
		return ErrNotFound
	}

	for _, p := range s.papers {
		if p.SubjectID == id {
			return ErrInUse
		}
	}

	delete(s.subjects, id)
	return nil
}
