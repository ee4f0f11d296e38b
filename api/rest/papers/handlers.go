package papers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/pyqpapers/portal/api/rest/pagination"
	"codeberg.org/pyqpapers/portal/api/rest/respond"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"github.com/gin-gonic/gin"
)

var errNotPDF = errors.New("only PDF files are allowed")

// builds the store filter; non-admins only ever see approved papers
func filterFromQuery(c *gin.Context, params pagination.Params) devstore.PaperFilter {
	filter := devstore.PaperFilter{
		Query:    strings.TrimSpace(c.Query("q")),
		Subject:  c.Query("subject"),
		Year:     c.Query("year"),
		Semester: c.Query("semester"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	if raw := c.Query("approved"); raw != "" {
		if approved, err := strconv.ParseBool(raw); err == nil {
			filter.Approved = &approved
		}
	}

	if !auth.IsAdmin(c) {
		approved := true
		filter.Approved = &approved
	}

	return filter
}

func ListHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := pagination.FromQuery(c, defaultLimit, maxLimit)
		page := store.Papers(filterFromQuery(c, params))

		respond.Page(c, page.Papers, pagination.NewMeta(params, page.Total))
	}
}

func SearchHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.Query("q")) == "" {
			apperrors.BadRequest(c, "search query is required", nil)
			return
		}

		params := pagination.FromQuery(c, defaultLimit, maxLimit)
		page := store.Papers(filterFromQuery(c, params))

		respond.Page(c, page.Papers, pagination.NewMeta(params, page.Total))
	}
}

func GetHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		paper, err := store.Paper(c.Param("id"), true)
		if err != nil {
			respond.StoreError(c, err, "paper")
			return
		}

		if !paper.Approved && !auth.IsAdmin(c) {
			apperrors.NotFound(c, "paper")
			return
		}

		respond.Data(c, http.StatusOK, paper)
	}
}

func DownloadHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		downloads, err := store.IncrementDownload(c.Param("id"))
		if err != nil {
			respond.StoreError(c, err, "paper")
			return
		}

		c.JSON(http.StatusOK, DownloadResponse{Success: true, Downloads: downloads})
	}
}

func StatsHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.Data(c, http.StatusOK, store.PaperStats())
	}
}

func CreateHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, file, ok := readUpload(c, true)
		if !ok {
			return
		}

		if form.Title == "" || (form.Subject == "" && form.SubjectID == "") || form.Year == "" || form.Semester == "" {
			apperrors.BadRequest(c, "title, subject, year and semester are required", nil)
			return
		}

		userID, _ := auth.GetUserID(c)

		paper, err := store.CreatePaper(form.fields(), file, userID)
		if err != nil {
			respond.StoreError(c, err, "subject")
			return
		}

		logger.Info("paper uploaded", "paper_id", paper.ID, "user_id", userID, "bytes", len(file))
		respond.Data(c, http.StatusCreated, paper)
	}
}

// multipart bodies replace metadata and file; JSON bodies toggle approval
func UpdateHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			form, file, ok := readUpload(c, false)
			if !ok {
				return
			}

			paper, err := store.UpdatePaper(id, form.fields(), file)
			if err != nil {
				respond.StoreError(c, err, "paper")
				return
			}

			respond.Data(c, http.StatusOK, paper)
			return
		}

		var req ApproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		paper, err := store.ApprovePaper(id, *req.Approved)
		if err != nil {
			respond.StoreError(c, err, "paper")
			return
		}

		respond.Data(c, http.StatusOK, paper)
	}
}

func DeleteHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.DeletePaper(c.Param("id")); err != nil {
			respond.StoreError(c, err, "paper")
			return
		}

		respond.OK(c, "paper deleted")
	}
}

func FileHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSuffix(c.Param("file"), ".pdf")

		data, err := store.File(id)
		if err != nil {
			apperrors.NotFound(c, "file")
			return
		}

		c.Data(http.StatusOK, "application/pdf", data)
	}
}

// parses an upload form; the file part is required only when requireFile is set
func readUpload(c *gin.Context, requireFile bool) (uploadForm, []byte, bool) {
	// room for the form fields around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<20)

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.PayloadTooLarge(c, "File size exceeds 10MB limit.")
			return form, nil, false
		}
		apperrors.BadRequest(c, "invalid upload form", err)
		return form, nil, false
	}

	header, err := c.FormFile("file")
	if err != nil {
		if !requireFile && errors.Is(err, http.ErrMissingFile) {
			return form, nil, true
		}
		apperrors.BadRequest(c, "Please upload a PDF file", nil)
		return form, nil, false
	}

	if header.Size > maxUploadSize {
		apperrors.PayloadTooLarge(c, "File size exceeds 10MB limit.")
		return form, nil, false
	}

	data, err := readPDF(header.Filename, func() (io.ReadCloser, error) { return header.Open() })
	if err != nil {
		if errors.Is(err, errNotPDF) {
			apperrors.BadRequest(c, "Only PDF files are allowed.", nil)
			return form, nil, false
		}
		apperrors.InternalError(c, "failed to read upload", err)
		return form, nil, false
	}

	return form, data, true
}

func readPDF(name string, open func() (io.ReadCloser, error)) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, errNotPDF
	}

	f, err := open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if http.DetectContentType(data) != "application/pdf" {
		return nil, errNotPDF
	}

	return data, nil
}
