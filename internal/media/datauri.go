// Package media handles the opaque payloads exchanged with the model API:
// reference images, generated images and dictation audio. Payloads travel as
// data URIs ("data:<mime>;base64,<data>") so they can be stored in the
// session document and handed to the gateway without extra bookkeeping.
package media

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// DefaultImageMIMEType is assumed when a data URI carries no media type.
const DefaultImageMIMEType = "image/jpeg"

// GeneratedImageMIMEType labels model output that arrives without a media type.
const GeneratedImageMIMEType = "image/png"

var mimePattern = regexp.MustCompile(`^data:([^;,]+)[;,]`)

// DataURI is a self-describing base64 payload.
type DataURI string

// NewDataURI encodes raw bytes as a base64 data URI.
func NewDataURI(mimeType string, data []byte) DataURI {
	return DataURI("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// IsZero reports whether the payload is absent.
func (d DataURI) IsZero() bool {
	return d == ""
}

// MIMEType returns the media type carried by the URI, or DefaultImageMIMEType
// when none is present.
func (d DataURI) MIMEType() string {
	if m := mimePattern.FindStringSubmatch(string(d)); m != nil {
		return m[1]
	}
	return DefaultImageMIMEType
}

// Base64 returns the encoded body with the "data:...," header stripped.
// A value without a header is returned unchanged.
func (d DataURI) Base64() string {
	s := string(d)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Bytes decodes the payload body.
func (d DataURI) Bytes() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("empty data URI")
	}
	data, err := base64.StdEncoding.DecodeString(d.Base64())
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, nil
}

// String returns a shortened form suitable for logs.
func (d DataURI) String() string {
	if d.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("<%s, %d base64 chars>", d.MIMEType(), len(d.Base64()))
}
