package editor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxBackgroundBytes caps uploaded background images.
const MaxBackgroundBytes = 2 * 1024 * 1024

var backgroundTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IngestBackground reads an uploaded image and returns it as a data URI.
// Oversized or non-image input is rejected with a ValidationError before it
// can reach the canvas.
func IngestBackground(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBackgroundBytes+1))
	if err != nil {
		return "", fmt.Errorf("read background: %w", err)
	}
	if len(data) > MaxBackgroundBytes {
		return "", &ValidationError{Field: "backgroundImage", Reason: "image is larger than 2MB"}
	}
	if len(data) == 0 {
		return "", &ValidationError{Field: "backgroundImage", Reason: "file is empty"}
	}

	kind, err := filetype.Match(data)
	if err != nil || !backgroundTypes[kind.MIME.Value] {
		return "", &ValidationError{Field: "backgroundImage", Reason: "unsupported image format"}
	}
	return "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// decodeDataURI decodes a base64 data URI produced by IngestBackground.
func decodeDataURI(uri string) (image.Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("background is not a base64 data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	return img, nil
}
