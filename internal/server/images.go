package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// decodeImageData accepts a base64 data URL or bare base64 and returns the
// bytes with their content type.
func decodeImageData(data string) ([]byte, string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, "", errors.New("no image data")
	}
	contentType := ""
	if header, payload, ok := strings.Cut(data, ","); ok {
		data = payload
		header = strings.TrimPrefix(header, "data:")
		contentType, _, _ = strings.Cut(header, ";")
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = http.DetectContentType(decoded)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", errors.New("image data must be an image")
	}
	return decoded, contentType, nil
}
