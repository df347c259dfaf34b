package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	// HTTP timeout for image downloads
	imageDownloadTimeout = 30 * time.Second
	// Cap inline image payloads before they overwhelm the upstream request size limits.
	maxImageBytes = 20 * 1024 * 1024
)

// DownloadImageFromURL fetches image content referenced by an OpenAI
// image_url part and returns the raw bytes plus media type. Both HTTP(S)
// URLs and base64 data URIs are supported.
func DownloadImageFromURL(ctx context.Context, imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", errors.New("image URL is empty")
	}

	if strings.HasPrefix(imageURL, "data:") {
		return handleDataURI(imageURL)
	}

	return downloadImageFromHTTPURL(ctx, imageURL)
}

// handleDataURI processes a data URI of the form
// data:image/[format];base64,[data].
func handleDataURI(dataURI string) ([]byte, string, error) {
	commaIndex := strings.Index(dataURI, ",")
	if commaIndex == -1 {
		return nil, "", errors.New("invalid data URI: missing comma separator")
	}

	metadata := dataURI[5:commaIndex] // skip "data:" prefix
	encodedData := dataURI[commaIndex+1:]

	if !strings.Contains(metadata, "image/") {
		return nil, "", errors.New("invalid data URI: not an image type")
	}
	if !strings.Contains(metadata, "base64") {
		return nil, "", errors.New("invalid data URI: only base64 encoding supported")
	}

	imageData, err := base64.StdEncoding.DecodeString(encodedData)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode base64 image data")
	}
	if len(imageData) == 0 {
		return nil, "", errors.New("decoded image data is empty")
	}
	if len(imageData) > maxImageBytes {
		return nil, "", errors.Errorf("decoded image data too large: %d bytes", len(imageData))
	}

	// Prefer the magic bytes over the declared media type when they disagree.
	if mediaType := detectImageMediaType(imageData); mediaType != "" {
		return imageData, mediaType, nil
	}

	mediaType := metadata
	if idx := strings.Index(metadata, ";"); idx != -1 {
		mediaType = metadata[:idx]
	}
	return imageData, mediaType, nil
}

func downloadImageFromHTTPURL(ctx context.Context, imageURL string) ([]byte, string, error) {
	client := &http.Client{Timeout: imageDownloadTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "create image request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("image download failed with status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "read image body")
	}
	if len(imageData) == 0 {
		return nil, "", errors.New("downloaded image is empty")
	}
	if len(imageData) > maxImageBytes {
		return nil, "", errors.Errorf("downloaded image too large: over %d bytes", maxImageBytes)
	}

	if mediaType := detectImageMediaType(imageData); mediaType != "" {
		return imageData, mediaType, nil
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		return imageData, ct, nil
	}
	return nil, "", errors.New("could not determine image format")
}

// detectImageMediaType sniffs the media type from magic bytes; empty when
// unrecognized.
func detectImageMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case len(data) > 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return ""
	}
}
