package devstore

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"codeberg.org/pyqpapers/portal/pyq/papers"
)

const (
	statsListSize = 5
	statsMonths   = 6
)

// list filters as parsed from the query string
type PaperFilter struct {
	Query    string
	Subject  string
	Year     string
	Semester string
	Approved *bool
	Page     int
	Limit    int
}

type PaperPage struct {
	Papers []papers.Paper
	Total  int
}

// metadata stored with an upload
type PaperFields struct {
	Title     string
	Subject   string
	SubjectID string
	Batch     string
	Year      string
	Semester  string
	ExamType  string
	Tags      string
}

func (f PaperFilter) matches(p *papers.Paper) bool {
	if f.Approved != nil && p.Approved != *f.Approved {
		return false
	}

	if f.Subject != "" && p.SubjectID != f.Subject && !strings.EqualFold(p.Subject, f.Subject) {
		return false
	}

	if f.Year != "" && p.Year != f.Year {
		return false
	}

	if f.Semester != "" && p.Semester != f.Semester {
		return false
	}

	if f.Query != "" {
		q := strings.ToLower(f.Query)
		haystack := strings.ToLower(strings.Join([]string{p.Title, p.Subject, p.Tags, p.ExamType, p.Batch}, " "))
		for _, word := range strings.Fields(q) {
			if !strings.Contains(haystack, word) {
				return false
			}
		}
	}

	return true
}

// newest first; a zero Limit returns every match
func (s *Store) Papers(f PaperFilter) PaperPage {
	s.mu.RLock()
	matched := make([]papers.Paper, 0)
	for _, p := range s.papers {
		if f.matches(p) {
			matched = append(matched, *p)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b papers.Paper) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	if f.Limit <= 0 {
		return PaperPage{Papers: matched, Total: total}
	}

	start := min((max(f.Page, 1)-1)*f.Limit, total)
	end := min(start+f.Limit, total)

	return PaperPage{Papers: matched[start:end], Total: total}
}

func (s *Store) CreatePaper(fields PaperFields, file []byte, uploadedBy string) (papers.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fields.SubjectID != "" {
		sub, ok := s.subjects[fields.SubjectID]
		if !ok {
			return papers.Paper{}, ErrNotFound
		}
		fields.Subject = sub.Name
	}

	id := newID()
	p := &papers.Paper{
		ID:         id,
		Title:      fields.Title,
		Subject:    fields.Subject,
		SubjectID:  fields.SubjectID,
		Batch:      fields.Batch,
		Year:       fields.Year,
		Semester:   fields.Semester,
		ExamType:   fields.ExamType,
		Tags:       fields.Tags,
		FileURL:    fileURL(id),
		UploadedBy: uploadedBy,
		CreatedAt:  s.now().UTC(),
	}

	s.papers[id] = p
	s.files[id] = file

	return *p, nil
}

// applies non-empty fields and, when given, a replacement file
func (s *Store) UpdatePaper(id string, fields PaperFields, file []byte) (papers.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return papers.Paper{}, ErrNotFound
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&p.Title, fields.Title)
	set(&p.Subject, fields.Subject)
	set(&p.SubjectID, fields.SubjectID)
	set(&p.Batch, fields.Batch)
	set(&p.Year, fields.Year)
	set(&p.Semester, fields.Semester)
	set(&p.ExamType, fields.ExamType)
	set(&p.Tags, fields.Tags)

	if file != nil {
		s.files[id] = file
	}

	return *p, nil
}

// a paper by id; countView records a detail page visit
func (s *Store) Paper(id string, countView bool) (papers.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return papers.Paper{}, ErrNotFound
	}

	if countView {
		p.Views++
	}

	return *p, nil
}

func (s *Store) ApprovePaper(id string, approved bool) (papers.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return papers.Paper{}, ErrNotFound
	}

	p.Approved = approved
	return *p, nil
}

func (s *Store) DeletePaper(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.papers[id]; !ok {
		return ErrNotFound
	}

	delete(s.papers, id)
	delete(s.files, id)

	for fid, fb := range s.feedback {
		if fb.PaperID == id {
			delete(s.feedback, fid)
		}
	}

	return nil
}

func (s *Store) IncrementDownload(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return 0, ErrNotFound
	}

	p.Downloads++
	return p.Downloads, nil
}

// the stored PDF of a paper
func (s *Store) File(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}

	return data, nil
}

func fileURL(id string) string {
	return "/uploads/" + id + ".pdf"
}

// dashboard overview across all papers
func (s *Store) PaperStats() papers.Stats {
	s.mu.RLock()
	all := make([]papers.Paper, 0, len(s.papers))
	for _, p := range s.papers {
		all = append(all, *p)
	}
	s.mu.RUnlock()

	stats := papers.Stats{
		TotalPapers:     len(all),
		RecentPapers:    []papers.Paper{},
		TopPapers:       []papers.Paper{},
		DepartmentStats: []papers.DepartmentCount{},
		MonthlyUploads:  []papers.MonthlyCount{},
	}

	bySubject := make(map[string]int)
	byMonth := make(map[string]int)

	for _, p := range all {
		if p.Approved {
			stats.ApprovedPapers++
		} else {
			stats.PendingPapers++
		}

		stats.TotalDownloads += p.Downloads
		stats.TotalViews += p.Views
		bySubject[p.Subject]++
		byMonth[p.CreatedAt.Format("2006-01")]++
	}

	slices.SortFunc(all, func(a, b papers.Paper) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	stats.RecentPapers = append(stats.RecentPapers, all[:min(statsListSize, len(all))]...)

	slices.SortStableFunc(all, func(a, b papers.Paper) int {
		return cmp.Compare(b.Downloads, a.Downloads)
	})
	stats.TopPapers = append(stats.TopPapers, all[:min(statsListSize, len(all))]...)

	for subject, count := range bySubject {
		stats.DepartmentStats = append(stats.DepartmentStats, papers.DepartmentCount{Department: subject, Count: count})
	}
	slices.SortFunc(stats.DepartmentStats, func(a, b papers.DepartmentCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Department, b.Department))
	})

	now := s.now().UTC()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := statsMonths - 1; i >= 0; i-- {
		key := month.AddDate(0, -i, 0).Format("2006-01")
		stats.MonthlyUploads = append(stats.MonthlyUploads, papers.MonthlyCount{Month: key, Count: byMonth[key]})
	}

	return stats
}
