package api

import (
	"bytes"
	"io"
	"mime/multipart"
	"path/filepath"
)

// multipartBody buffers r into a multipart form with a single "file" field so the same
// bytes can be sent again after a token refresh.
func multipartBody(filename string, r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
