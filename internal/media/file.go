package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultMaxReferenceDimension bounds the longest side of an uploaded
// reference image. Larger JPEG/PNG files are downscaled before encoding.
const DefaultMaxReferenceDimension = 2048

// SupportedImageExtensions lists the reference image formats accepted for upload.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// SupportedAudioExtensions lists the dictation formats accepted for transcription.
var SupportedAudioExtensions = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// DefaultAudioMIMEType is used when the recording format is unknown.
const DefaultAudioMIMEType = "audio/wav"

// GetImageMIMEType returns the MIME type for an image file extension.
func GetImageMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported image extension: %s", ext)
}

// GetAudioMIMEType returns the MIME type for an audio file extension, falling
// back to DefaultAudioMIMEType.
func GetAudioMIMEType(ext string) string {
	if mimeType, ok := SupportedAudioExtensions[strings.ToLower(ext)]; ok {
		return mimeType
	}
	return DefaultAudioMIMEType
}

// LoadImageFile reads an image from disk and returns it as a data URI.
// JPEG and PNG files whose longest side exceeds maxDimension are resized with
// Catmull-Rom resampling; other formats are passed through as-is. A
// maxDimension of 0 disables resizing.
func LoadImageFile(path string, maxDimension int) (DataURI, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, err := GetImageMIMEType(ext)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	if maxDimension > 0 && (ext == ".jpg" || ext == ".jpeg" || ext == ".png") {
		resized, changed, err := downscale(data, ext, maxDimension)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to downscale reference image, using original")
		} else if changed {
			data = resized
		}
	}

	log.Debug().
		Str("path", path).
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Msg("Reference image loaded")

	return NewDataURI(mimeType, data), nil
}

// LoadAudioFile reads a dictation recording from disk.
func LoadAudioFile(path string) (DataURI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("audio file is empty: %s", path)
	}
	return NewDataURI(GetAudioMIMEType(filepath.Ext(path)), data), nil
}

// WriteFile decodes a payload and writes it to path.
func WriteFile(path string, payload DataURI) error {
	data, err := payload.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// downscale resizes an encoded JPEG/PNG so that neither side exceeds
// maxDimension, re-encoding in the source format. changed is false when the
// image already fits.
func downscale(data []byte, ext string, maxDimension int) ([]byte, bool, error) {
	var img image.Image
	var err error
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, false, fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := scaledDimensions(bounds.Dx(), bounds.Dy(), maxDimension)
	if width == bounds.Dx() && height == bounds.Dy() {
		return data, false, nil
	}

	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, resized)
	default:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 92})
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode resized image: %w", err)
	}

	log.Debug().
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Int("new_width", width).
		Int("new_height", height).
		Msg("Reference image downscaled")

	return buf.Bytes(), true, nil
}

// scaledDimensions keeps the aspect ratio while fitting the longest side into maxDimension.
func scaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width >= height {
		h := height * maxDimension / width
		if h < 1 {
			h = 1
		}
		return maxDimension, h
	}
	w := width * maxDimension / height
	if w < 1 {
		w = 1
	}
	return w, maxDimension
}
