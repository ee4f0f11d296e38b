package subjects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc, err := httpclient.New(httpclient.DefaultConfig(srv.URL + "/api"))
	require.NoError(t, err)

	return NewClient(hc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func TestFilter_SendsYearAndSemester(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/subjects/filter", r.URL.Path)
		assert.Equal(t, "Second Year", r.URL.Query().Get("year"))
		assert.Equal(t, "Semester 3", r.URL.Query().Get("semester"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []Subject{{ID: "s1", Name: "DBMS"}}})
	})

	list, err := client.Filter(context.Background(), "Second Year", "Semester 3")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "DBMS", list[0].Name)
}

func TestFilter_RequiresBothParts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Filter(context.Background(), "Second Year", "")

	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGrouped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/subjects/grouped", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []YearGroup{{
			Year: "First Year",
			Semesters: []SemesterGroup{
				{Semester: "Semester 1", Subjects: []Subject{{ID: "s1", Name: "Maths"}}},
			},
		}}})
	})

	groups, err := client.Grouped(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Maths", groups[0].Semesters[0].Subjects[0].Name)
}

func TestCreate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Compilers", req.Name)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": Subject{ID: "s9", Name: req.Name, Year: req.Year, Semester: req.Semester}})
	})

	subject, err := client.Create(context.Background(), CreateRequest{Name: "  Compilers ", Year: "Third Year", Semester: "Semester 6"})
	require.NoError(t, err)
	assert.Equal(t, "s9", subject.ID)

	_, err = client.Create(context.Background(), CreateRequest{Name: "x"})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "year", verr.Field)
}

func TestDelete_ConflictSurfacesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict", "message": "Subject has papers"})
	})

	err := client.Delete(context.Background(), "s1")

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Subject has papers", apiErr.Message)
}

func TestSubject_AcceptsUnderscoreID(t *testing.T) {
	var s Subject
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"s1","name":"Compilers","year":"Third Year"}`), &s))

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "Compilers", s.Name)
	assert.Equal(t, "Third Year", s.Year)
}
