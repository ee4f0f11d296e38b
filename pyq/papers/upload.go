package papers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
)

// reads a PDF from disk, refusing oversized or non-PDF files before reading them whole
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &apperrors.ValidationError{Field: "file", Message: fmt.Sprintf("cannot read %s", filepath.Base(path))}
	}

	if info.IsDir() {
		return nil, &apperrors.ValidationError{Field: "file", Message: "please choose a PDF file"}
	}

	if info.Size() > MaxUploadSize {
		return nil, &apperrors.ValidationError{Field: "file", Message: "File size exceeds 10MB limit."}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	file := &File{Name: filepath.Base(path), Data: data}
	if err := file.Validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// checks the client-side upload rules: PDF only, at most MaxUploadSize
func (f *File) Validate() error {
	if f == nil || len(f.Data) == 0 {
		return &apperrors.ValidationError{Field: "file", Message: "Please upload a PDF file"}
	}

	if len(f.Data) > MaxUploadSize {
		return &apperrors.ValidationError{Field: "file", Message: "File size exceeds 10MB limit."}
	}

	if !strings.EqualFold(filepath.Ext(f.Name), ".pdf") || http.DetectContentType(f.Data) != "application/pdf" {
		return &apperrors.ValidationError{Field: "file", Message: "Only PDF files are allowed."}
	}

	return nil
}

// the title the upload form derives when none is given
func (in Input) title() string {
	if in.Title != "" {
		return in.Title
	}

	return fmt.Sprintf("%s - %s - %s", in.Subject, in.Year, in.ExamType)
}

// builds the multipart payload; file may be nil on updates
func encodeForm(in Input, file *File) (string, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"title", in.title()},
		{"subject", in.Subject},
		{"subjectId", in.SubjectID},
		{"batch", in.Batch},
		{"year", in.Year},
		{"semester", in.Semester},
		{"examType", in.ExamType},
		{"tags", in.Tags},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		if err := w.WriteField(f.key, f.value); err != nil {
			return "", nil, fmt.Errorf("failed to write form field %s: %w", f.key, err)
		}
	}

	if file != nil {
		part, err := w.CreateFormFile("file", file.Name)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
			return "", nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish form: %w", err)
	}

	return w.FormDataContentType(), buf.Bytes(), nil
}
