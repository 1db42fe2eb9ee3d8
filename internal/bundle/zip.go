// Package bundle packages studio results for download: a ZIP of the
// photoshoot images, an optional upload of that ZIP to S3, and retrieval of
// a generated video clip.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/media"
)

// ZipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const ZipMethodZstd uint16 = 93

const (
	// PhotoshootFolder is the directory inside the archive.
	PhotoshootFolder = "luxstudio_photoshoot"
	// PhotoshootZipName is the suggested archive file name.
	PhotoshootZipName = "luxstudio_photoshoot.zip"
)

// ZipOptions controls archive creation.
type ZipOptions struct {
	// Zstd compresses entries with Zstandard at level 12 instead of Deflate.
	// Smaller, but not every unzip tool can read it.
	Zstd bool
	// ModTime stamps every entry. Defaults to now.
	ModTime time.Time
}

// EntryName returns the archive path for the image at zero-based index i.
func EntryName(i int, img media.DataURI) string {
	return fmt.Sprintf("%s/lux_studio_angle_%d%s", PhotoshootFolder, i+1, extension(img.MIMEType()))
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// WriteImagesZip writes images into a ZIP on w and returns the number of
// entries written.
func WriteImagesZip(w io.Writer, images []media.DataURI, opts ZipOptions) (int, error) {
	if len(images) == 0 {
		return 0, fmt.Errorf("no images to bundle")
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	zw := zip.NewWriter(w)
	method := zip.Deflate
	if opts.Zstd {
		method = ZipMethodZstd
		zw.RegisterCompressor(ZipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
		})
	}

	for i, img := range images {
		data, err := img.Bytes()
		if err != nil {
			zw.Close()
			return i, fmt.Errorf("decode image %d: %w", i+1, err)
		}
		header := &zip.FileHeader{
			Name:   EntryName(i, img),
			Method: method,
		}
		header.SetModTime(modTime)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			zw.Close()
			return i, fmt.Errorf("create ZIP entry for %s: %w", header.Name, err)
		}
		if _, err := entry.Write(data); err != nil {
			zw.Close()
			return i, fmt.Errorf("write to ZIP for %s: %w", header.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return len(images), fmt.Errorf("close ZIP writer: %w", err)
	}
	return len(images), nil
}

// WriteImagesZipFile writes the archive to path and returns its size.
func WriteImagesZipFile(path string, images []media.DataURI, opts ZipOptions) (int64, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create ZIP: %w", err)
	}
	n, err := WriteImagesZip(f, images, opts)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close ZIP: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat ZIP file: %w", err)
	}
	log.Info().Str("file", path).Int("images", n).Int64("bytes", info.Size()).Bool("zstd", opts.Zstd).Msg("Photoshoot bundle written")
	return info.Size(), nil
}
