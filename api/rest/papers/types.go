package papers

import "codeberg.org/pyqpapers/portal/internal/devstore"

const (
	// server side upload limit, matching the client check
	maxUploadSize = 10 << 20

	defaultLimit = 20
	maxLimit     = 100
)

type ApproveRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

type DownloadResponse struct {
	Success   bool `json:"success"`
	Downloads int  `json:"downloads"`
}

// form fields of an upload
type uploadForm struct {
	Title     string `form:"title"`
	Subject   string `form:"subject"`
	SubjectID string `form:"subjectId"`
	Batch     string `form:"batch"`
	Year      string `form:"year"`
	Semester  string `form:"semester"`
	ExamType  string `form:"examType"`
	Tags      string `form:"tags"`
}

func (f uploadForm) fields() devstore.PaperFields {
	return devstore.PaperFields(f)
}
