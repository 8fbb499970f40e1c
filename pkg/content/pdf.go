package content

import (
	"bytes"
	"errors"
	"io"

	"github.com/ledongthuc/pdf"
)

var errEmptyPDFBytes = errors.New("pdf content is empty")

// TextFromPDF extracts the plain text of a published protocol PDF from
// an in-memory byte slice (the shape archive fetches arrive in).
func TextFromPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDFBytes
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	return pdfPlainText(doc)
}

func pdfPlainText(doc *pdf.Reader) (string, error) {
	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
