package feedback

import (
	"encoding/json"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
)

// review states an administrator moves feedback through
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

const (
	MinRating = 1
	MaxRating = 5
)

// submitter as embedded in admin listings
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Feedback struct {
	ID        string    `json:"id"`
	User      *Author   `json:"user,omitempty"`
	PaperID   string    `json:"paperId,omitempty"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	Status    string    `json:"status"`
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// accepts both "id" and the "_id" key some deployments send
func (f *Feedback) UnmarshalJSON(data []byte) error {
	type plain Feedback
	var aux struct {
		plain
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*f = Feedback(aux.plain)
	if f.ID == "" {
		f.ID = aux.AltID
	}
	return nil
}

// what a user sends from the feedback form
type Submission struct {
	Subject string `json:"subject" validate:"notblank"`
	Message string `json:"message" validate:"notblank"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	PaperID string `json:"paperId,omitempty"`
}

type statusUpdate struct {
	Status   string `json:"status" validate:"oneof=pending in_progress resolved"`
	Response string `json:"response,omitempty"`
}

type Client struct {
	http *httpclient.Client
}
