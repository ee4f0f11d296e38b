package devstore

import (
	"context"
	"testing"
	"time"

	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"codeberg.org/pyqpapers/portal/pyq/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(WithHashCost(bcrypt.MinCost))

	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	return s
}

func TestAccounts_CreateAndAuthenticate(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateAccount("Jane", " Jane@Example.com ", "secret1", false)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, users.StatusActive, user.Status)

	_, err = s.CreateAccount("Other", "jane@example.com", "secret2", false)
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.Authenticate("JANE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Authenticate("jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_ChangePasswordRevokesTokens(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)

	before, err := s.Account(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = s.ChangePassword(user.ID, "wrong", "secret2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	after, err := s.ChangePassword(user.ID, "secret1", "secret2")
	require.NoError(t, err)
	assert.Equal(t, before.TokenVersion+1, after.TokenVersion)

	_, err = s.Authenticate("jane@example.com", "secret2")
	assert.NoError(t, err)
}

func TestAccounts_GoogleLinksExistingEmail(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)

	linked, err := s.FindOrCreateGoogle(auth.GoogleProfile{GoogleID: "g-1", Email: "Jane@example.com", AvatarURL: "https://img/j.png"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)
	assert.Equal(t, "https://img/j.png", linked.ProfileImage)

	created, err := s.FindOrCreateGoogle(auth.GoogleProfile{GoogleID: "g-2", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "sam", created.Name)

	// google-only accounts cannot sign in with a password
	_, err = s.Authenticate("sam@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_AdminMutationsReachLookup(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)

	_, err = s.SetRole(user.ID, true)
	require.NoError(t, err)
	_, err = s.SetStatus(user.ID, users.StatusBlocked)
	require.NoError(t, err)

	acct, err := s.Account(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, acct.IsAdmin)
	assert.True(t, acct.Blocked)

	require.NoError(t, s.DeleteUser(user.ID))
	_, err = s.Account(context.Background(), user.ID)
	assert.ErrorIs(t, err, auth.ErrUnknownAccount)
}

func TestAccounts_UpdateProfileKeepsEmailIndex(t *testing.T) {
	s := newTestStore(t)

	jane, err := s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)
	_, err = s.CreateAccount("Sam", "sam@example.com", "secret1", false)
	require.NoError(t, err)

	taken := "sam@example.com"
	_, err = s.UpdateProfile(jane.ID, ProfileChanges{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	email := "jane.doe@example.com"
	name := "Jane Doe"
	updated, err := s.UpdateProfile(jane.ID, ProfileChanges{Email: &email, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.Name)

	_, err = s.Authenticate("jane.doe@example.com", "secret1")
	assert.NoError(t, err)
	_, err = s.Authenticate("jane@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserStats(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateAccount("Admin", "admin@example.com", "secret1", true)
	require.NoError(t, err)
	_, err = s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)

	stats := s.UserStats()
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.AdminUsers)
	assert.Equal(t, 1, stats.RegularUsers)
	require.Len(t, stats.DailyRegistrations, 7)
	assert.Equal(t, 2, stats.DailyRegistrations[6].Count)
}

func TestSubjects_GroupedAndDeleteGuard(t *testing.T) {
	s := newTestStore(t)

	dbms, err := s.CreateSubject(subjects.CreateRequest{Name: "DBMS", Year: "Second Year", Semester: "Semester 3"})
	require.NoError(t, err)
	_, err = s.CreateSubject(subjects.CreateRequest{Name: "Maths", Year: "First Year", Semester: "Semester 1"})
	require.NoError(t, err)
	_, err = s.CreateSubject(subjects.CreateRequest{Name: "Algorithms", Year: "Second Year", Semester: "Semester 3"})
	require.NoError(t, err)

	_, err = s.CreateSubject(subjects.CreateRequest{Name: "dbms", Year: "Second Year", Semester: "Semester 3"})
	assert.ErrorIs(t, err, ErrInUse)

	groups := s.GroupedSubjects()
	require.Len(t, groups, 2)
	assert.Equal(t, "First Year", groups[0].Year)
	assert.Equal(t, "Algorithms", groups[1].Semesters[0].Subjects[0].Name)

	assert.Len(t, s.SubjectsFor("Second Year", "Semester 3"), 2)

	_, err = s.CreatePaper(PaperFields{Title: "DBMS final", SubjectID: dbms.ID}, []byte("%PDF-"), "admin")
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteSubject(dbms.ID), ErrInUse)
}

func TestPapers_FilterSearchAndPaginate(t *testing.T) {
	s := newTestStore(t)

	for _, title := range []string{"Compilers midterm", "Compilers final", "Networks final"} {
		p, err := s.CreatePaper(PaperFields{Title: title, Subject: "CS", Year: "Third Year", Semester: "Semester 5"}, []byte("%PDF-"), "admin")
		require.NoError(t, err)
		if title != "Networks final" {
			_, err = s.ApprovePaper(p.ID, true)
			require.NoError(t, err)
		}
	}

	approved := true
	page := s.Papers(PaperFilter{Approved: &approved})
	assert.Equal(t, 2, page.Total)

	search := s.Papers(PaperFilter{Query: "final"})
	assert.Equal(t, 2, search.Total)

	first := s.Papers(PaperFilter{Limit: 2, Page: 1})
	assert.Len(t, first.Papers, 2)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, "Networks final", first.Papers[0].Title)

	beyond := s.Papers(PaperFilter{Limit: 2, Page: 5})
	assert.Empty(t, beyond.Papers)
}

func TestPapers_CountersAndStats(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreatePaper(PaperFields{Title: "OS", Subject: "Operating Systems"}, []byte("%PDF-"), "admin")
	require.NoError(t, err)

	_, err = s.Paper(p.ID, true)
	require.NoError(t, err)
	n, err := s.IncrementDownload(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats := s.PaperStats()
	assert.Equal(t, 1, stats.TotalPapers)
	assert.Equal(t, 1, stats.PendingPapers)
	assert.Equal(t, 1, stats.TotalDownloads)
	assert.Equal(t, 1, stats.TotalViews)
	require.Len(t, stats.MonthlyUploads, 6)
	assert.Equal(t, 1, stats.MonthlyUploads[5].Count)
	assert.Equal(t, "Operating Systems", stats.DepartmentStats[0].Department)

	_, err = s.IncrementDownload("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedback_Lifecycle(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateAccount("Jane", "jane@example.com", "secret1", false)
	require.NoError(t, err)

	_, err = s.SubmitFeedback(user.ID, feedback.Submission{Subject: "s", Message: "m", Rating: 3, PaperID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	fb, err := s.SubmitFeedback(user.ID, feedback.Submission{Subject: "Search", Message: "nice", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, feedback.StatusPending, fb.Status)
	assert.Equal(t, "Jane", fb.User.Name)

	assert.Len(t, s.FeedbackBy(user.ID), 1)
	assert.Empty(t, s.FeedbackBy("someone-else"))

	updated, err := s.SetFeedbackStatus(fb.ID, feedback.StatusResolved, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "thanks", updated.Response)

	require.NoError(t, s.DeleteFeedback(fb.ID))
	assert.Empty(t, s.Feedback())
}
