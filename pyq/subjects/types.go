package subjects

import (
	"encoding/json"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
)

// academic years offered by the browse screens
var Years = []string{
	"First Year",
	"Second Year",
	"Third Year",
	"Fourth Year",
}

// semesters offered by the browse screens
var Semesters = []string{
	"Semester 1",
	"Semester 2",
	"Semester 3",
	"Semester 4",
	"Semester 5",
	"Semester 6",
	"Semester 7",
	"Semester 8",
}

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Year      string    `json:"year"`
	Semester  string    `json:"semester"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// accepts both "id" and the "_id" key some deployments send
func (s *Subject) UnmarshalJSON(data []byte) error {
	type plain Subject
	var aux struct {
		plain
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Subject(aux.plain)
	if s.ID == "" {
		s.ID = aux.AltID
	}
	return nil
}

// subjects of one year, split by semester
type YearGroup struct {
	Year      string          `json:"year"`
	Semesters []SemesterGroup `json:"semesters"`
}

type SemesterGroup struct {
	Semester string    `json:"semester"`
	Subjects []Subject `json:"subjects"`
}

type CreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Year     string `json:"year" validate:"required"`
	Semester string `json:"semester" validate:"required"`
}

// handles subject catalogue requests
type Client struct {
	http *httpclient.Client
}
