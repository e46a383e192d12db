// Package capture reads user-selected pages and encodes them for the extraction endpoint.
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"cookbookindex/internal/extract"
)

// Options tunes encoding. The zero value encodes files as-is.
type Options struct {
	// MaxWidth downscales JPEG and PNG images wider than this many pixels.
	// Zero disables resizing.
	MaxWidth uint
}

// EncodeFile reads the file at path and encodes it. The media type is taken
// from the file extension.
func EncodeFile(path string, opts Options) (extract.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return extract.Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Encode(f, MediaTypeForPath(path), opts)
}

// Encode reads r fully and returns it base64 encoded. An empty mediaType is
// reported as image/jpeg.
func Encode(r io.Reader, mediaType string, opts Options) (extract.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return extract.Document{}, fmt.Errorf("read document: %w", err)
	}
	if mediaType == "" {
		mediaType = extract.DefaultMediaType
	}

	if opts.MaxWidth > 0 {
		data, err = downscale(data, mediaType, opts.MaxWidth)
		if err != nil {
			return extract.Document{}, err
		}
	}

	return extract.Document{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
	}, nil
}

// MediaTypeForPath guesses the media type from the extension, or "" if unknown.
func MediaTypeForPath(path string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		return ""
	}
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return mt
}

func downscale(data []byte, mediaType string, maxWidth uint) ([]byte, error) {
	if mediaType != "image/jpeg" && mediaType != "image/png" {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if uint(img.Bounds().Dx()) <= maxWidth {
		return data, nil
	}

	img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch mediaType {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
