package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/pyqpapers/portal/api/rest"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/persist"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"codeberg.org/pyqpapers/portal/pyq/users"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// how long the harness waits for further messages before a step is done
const settleIdle = 300 * time.Millisecond

// runs commands the way a bubbletea program would and feeds their
// messages back into the model until nothing happens for settleIdle
type harness struct {
	t     *testing.T
	app   *Model
	store *devstore.Store
	msgs  chan tea.Msg
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := devstore.New(devstore.WithHashCost(bcrypt.MinCost))
	_, err := store.CreateAccount("Ada Admin", "admin@pyq.dev", "admin-secret", true)
	require.NoError(t, err)
	_, err = store.CreateAccount("Mia Member", "mia@pyq.dev", "member-secret", false)
	require.NoError(t, err)

	issuer, err := auth.NewIssuer("tui-jwt-secret", 15*time.Minute)
	require.NoError(t, err)
	refresh, err := auth.NewRefreshStore("tui-session-secret", false, time.Hour)
	require.NoError(t, err)

	engine, err := rest.NewRouter(rest.Options{Store: store, Issuer: issuer, Refresh: refresh, AuthRate: "1000-M"})
	require.NoError(t, err)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	history := router.NewHistory(router.RouteHome)

	client, err := httpclient.New(httpclient.DefaultConfig(srv.URL+"/api"), httpclient.WithLocator(history.Current))
	require.NoError(t, err)

	sess := session.New(client, persist.NewMemoryStore(), history)
	t.Cleanup(sess.Close)
	require.NoError(t, sess.Init(context.Background()))

	app := NewApp(context.Background(), Deps{
		Session:  sess,
		History:  history,
		Papers:   papers.NewClient(client),
		Subjects: subjects.NewClient(client),
		Users:    users.NewClient(client),
		Feedback: feedback.NewClient(client),
	})
	t.Cleanup(app.Close)

	h := &harness{t: t, app: app, store: store, msgs: make(chan tea.Msg, 64)}
	h.run(app.Init())
	h.settle()

	return h
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}

	go func() {
		if msg := cmd(); msg != nil {
			h.msgs <- msg
		}
	}()
}

func (h *harness) settle() {
	for {
		select {
		case msg := <-h.msgs:
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, cmd := range batch {
					h.run(cmd)
				}
				continue
			}
			if _, ok := msg.(tea.QuitMsg); ok {
				continue
			}
			_, cmd := h.app.Update(msg)
			h.run(cmd)
		case <-time.After(settleIdle):
			return
		}
	}
}

// delivers msg and waits for everything it started
func (h *harness) send(msg tea.Msg) {
	_, cmd := h.app.Update(msg)
	h.run(cmd)
	h.settle()
}

func (h *harness) key(k string) {
	switch k {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func (h *harness) login(email, password string) {
	h.send(navigateMsg{route: router.RouteLogin})

	login, ok := h.app.current.(*Login)
	require.True(h.t, ok, "expected login screen, got %T", h.app.current)

	login.form.set(loginEmail, email)
	login.form.set(loginPassword, password)
	h.key("enter")
}

func TestApp_StartsOnWelcome(t *testing.T) {
	h := newHarness(t)

	welcome, ok := h.app.current.(*Welcome)
	require.True(t, ok)
	assert.True(t, welcome.available("login"))
	assert.False(t, welcome.available("logout"))
	assert.Contains(t, h.app.View(), "not signed in")
}

func TestApp_GuardsSendAnonymousUsersToLogin(t *testing.T) {
	h := newHarness(t)

	h.send(navigateMsg{route: router.RouteAdmin})

	assert.Equal(t, router.RouteLogin, h.app.deps.History.Current())
	assert.IsType(t, &Login{}, h.app.current)
}

func TestApp_LoginLandsOnSearch(t *testing.T) {
	h := newHarness(t)

	h.login("mia@pyq.dev", "member-secret")

	assert.Equal(t, router.RouteSearch, h.app.deps.History.Current())
	assert.IsType(t, &PaperList{}, h.app.current)
	assert.Contains(t, h.app.View(), "Mia Member")
}

func TestApp_LoginErrorStaysOnForm(t *testing.T) {
	h := newHarness(t)

	h.login("mia@pyq.dev", "wrong-password")

	login, ok := h.app.current.(*Login)
	require.True(t, ok)
	assert.Error(t, login.err)
	assert.False(t, login.busy)
	assert.Equal(t, router.RouteLogin, h.app.deps.History.Current())
}

func TestApp_MembersCannotOpenAdmin(t *testing.T) {
	h := newHarness(t)
	h.login("mia@pyq.dev", "member-secret")

	h.send(navigateMsg{route: router.RouteAdminUsers})

	assert.Equal(t, router.RouteSearch, h.app.deps.History.Current())
}

func TestApp_RevokedSessionReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login("mia@pyq.dev", "member-secret")

	identity := h.app.deps.Session.Identity()
	require.NotNil(t, identity)
	require.NoError(t, h.store.RevokeTokens(identity.ID))

	h.send(navigateMsg{route: router.RouteSubjects})

	assert.Equal(t, router.RouteLogin, h.app.deps.History.Current())
	assert.IsType(t, &Login{}, h.app.current)
	assert.False(t, h.app.viewer.IsAuthenticated())
}

func TestApp_AdminApprovesPendingPaper(t *testing.T) {
	h := newHarness(t)

	pending, err := h.store.CreatePaper(devstore.PaperFields{
		Title: "Networks Final", Subject: "Computer Networks", Batch: "2021",
		Year: "Third Year", Semester: "Semester 6", ExamType: "Final",
	}, []byte("%PDF-1.4\n%%EOF\n"), "seed")
	require.NoError(t, err)

	h.login("admin@pyq.dev", "admin-secret")
	h.send(navigateMsg{route: router.RouteAdminPapers})

	admin, ok := h.app.current.(*Admin)
	require.True(t, ok)
	require.Len(t, admin.rows, 1)
	assert.Equal(t, pending.ID, admin.rows[0].id)

	h.key("a")

	approved, err := h.store.Paper(pending.ID, false)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	assert.Empty(t, admin.rows)
	assert.Equal(t, "paper approved", admin.notice)
}

func TestApp_LogoutFromWelcome(t *testing.T) {
	h := newHarness(t)
	h.login("mia@pyq.dev", "member-secret")

	h.send(navigateMsg{route: router.RouteHome})
	for _, r := range "logout" {
		h.key(string(r))
	}
	h.key("enter")

	assert.False(t, h.app.deps.Session.IsAuthenticated())
	assert.Equal(t, router.RouteLogin, h.app.deps.History.Current())
}

func TestPaperMarkdown(t *testing.T) {
	doc := paperMarkdown(papers.Paper{
		Title: "DBMS Midterm", Subject: "Database Systems", Year: "Second Year",
		Semester: "Semester 4", ExamType: "Midterm", Downloads: 3,
	}, []feedback.Feedback{{Subject: "Clear scan", Message: "thanks", Rating: 4}})

	assert.True(t, strings.HasPrefix(doc, "# DBMS Midterm"))
	assert.Contains(t, doc, "| Downloads | 3 |")
	assert.Contains(t, doc, "pending approval")
	assert.Contains(t, doc, "★★★★ Clear scan: thanks")
}

func TestNextFeedbackStatus(t *testing.T) {
	assert.Equal(t, feedback.StatusInProgress, nextFeedbackStatus(feedback.StatusPending))
	assert.Equal(t, feedback.StatusResolved, nextFeedbackStatus(feedback.StatusInProgress))
	assert.Equal(t, feedback.StatusPending, nextFeedbackStatus(feedback.StatusResolved))
}

func TestForm_FocusCycles(t *testing.T) {
	f := newForm("a", "", "*b", "", "c", "")

	assert.Equal(t, 0, f.focus)
	f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, f.focus)
	f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 2, f.focus)
}

func TestMailbox_CoalescesBursts(t *testing.T) {
	box := newMailbox()

	for _, route := range []string{router.RouteSearch, router.RouteSubjects, router.RouteLogin} {
		box.putRoute(route)
	}
	box.putSnapshot(session.Snapshot{State: session.StateAuthenticated})
	box.putSnapshot(session.Snapshot{State: session.StateAnonymous})

	first, ok := box.next().(sessionChangedMsg)
	require.True(t, ok)
	assert.Equal(t, session.StateAnonymous, first.snapshot.State)

	second, ok := box.next().(routeChangedMsg)
	require.True(t, ok)
	assert.Equal(t, router.RouteLogin, second.route)

	select {
	case <-box.wake:
		t.Fatal("nothing should be pending")
	default:
	}
}
