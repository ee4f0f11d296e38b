package papers

import (
	"encoding/json"
	"time"

	"codeberg.org/pyqpapers/portal/internal/httpclient"
)

// largest PDF accepted for upload. the server enforces its own limit.
const MaxUploadSize = 10 << 20

// exam kinds offered by the upload form
var ExamTypes = []string{
	"Midterm",
	"Final",
	"Quiz",
	"Assignment",
	"Practical",
}

type Paper struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	SubjectID  string    `json:"subjectId,omitempty"`
	Batch      string    `json:"batch,omitempty"`
	Year       string    `json:"year"`
	Semester   string    `json:"semester"`
	ExamType   string    `json:"examType,omitempty"`
	Tags       string    `json:"tags,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	Approved   bool      `json:"approved"`
	Downloads  int       `json:"downloads"`
	Views      int       `json:"views"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// accepts both "id" and the "_id" key some deployments send
func (p *Paper) UnmarshalJSON(data []byte) error {
	type plain Paper
	var aux struct {
		plain
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = Paper(aux.plain)
	if p.ID == "" {
		p.ID = aux.AltID
	}
	return nil
}

// list filters; zero values are not sent
type ListOptions struct {
	Page     int
	Limit    int
	Subject  string
	Year     string
	Semester string
	Approved *bool
}

// one page of papers
type Page struct {
	Papers     []Paper
	Count      int
	Pagination *httpclient.Pagination
}

// metadata of an uploaded paper
type Input struct {
	Title     string `form:"title"`
	Subject   string `form:"subject" validate:"notblank"`
	SubjectID string `form:"subjectId"`
	Batch     string `form:"batch" validate:"notblank"`
	Year      string `form:"year" validate:"required"`
	Semester  string `form:"semester" validate:"required"`
	ExamType  string `form:"examType" validate:"required"`
	Tags      string `form:"tags"`
}

// a PDF ready for upload
type File struct {
	Name string
	Data []byte
}

// admin dashboard overview
type Stats struct {
	TotalPapers     int               `json:"totalPapers"`
	ApprovedPapers  int               `json:"approvedPapers"`
	PendingPapers   int               `json:"pendingPapers"`
	TotalDownloads  int               `json:"totalDownloads"`
	TotalViews      int               `json:"totalViews"`
	RecentPapers    []Paper           `json:"recentPapers"`
	TopPapers       []Paper           `json:"topPapers"`
	DepartmentStats []DepartmentCount `json:"departmentStats"`
	MonthlyUploads  []MonthlyCount    `json:"monthlyUploads"`
}

type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// handles paper requests
type Client struct {
	http *httpclient.Client
}
