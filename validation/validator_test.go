package validation

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"teamvault-backend/apperr"
	"teamvault-backend/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textCategory() config.CategoryConfig {
	return config.CategoryConfig{
		MaxSize:      1024,
		AllowedTypes: []string{"text/plain", "application/pdf"},
	}
}

func imageCategory() config.CategoryConfig {
	return config.CategoryConfig{
		MaxSize:      10 * 1024 * 1024,
		AllowedTypes: []string{"image/png", "image/jpeg"},
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func validationCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*apperr.ValidationError)
	require.True(t, ok, "expected a validation error, got %T", err)
	return ve.Code
}

func TestValidateAcceptsPlainText(t *testing.T) {
	data := []byte("hello world")
	err := Validate(data, "notes.txt", "text/plain", int64(len(data)), textCategory())
	assert.NoError(t, err)
}

func TestValidateSizeLimit(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 2048)
	err := Validate(data, "big.txt", "text/plain", int64(len(data)), textCategory())
	assert.Equal(t, "FILE_TOO_LARGE", validationCode(t, err))
}

func TestValidateMimeAllowList(t *testing.T) {
	data := []byte("hello")
	err := Validate(data, "a.bin", "application/octet-stream", int64(len(data)), textCategory())
	assert.Equal(t, "INVALID_FILE_TYPE", validationCode(t, err))
}

func TestValidateMimeWildcard(t *testing.T) {
	cfg := config.CategoryConfig{MaxSize: 1024, AllowedTypes: []string{config.MimeWildcard}}
	data := []byte("anything goes")
	err := Validate(data, "a.bin", "application/octet-stream", int64(len(data)), cfg)
	assert.NoError(t, err)
}

func TestValidateFilename(t *testing.T) {
	cases := []struct {
		name     string
		filename string
	}{
		{"empty", ""},
		{"traversal", "../../etc/passwd"},
		{"forward slash", "dir/file.txt"},
		{"backslash", "dir\\file.txt"},
		{"control character", "bad\x00name.txt"},
		{"leading dot", ".hidden"},
		{"trailing dot", "name."},
		{"reserved device name", "CON.txt"},
		{"too long", strings.Repeat("a", 256)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte("hello")
			err := Validate(data, tc.filename, "text/plain", int64(len(data)), textCategory())
			assert.Equal(t, "INVALID_FILENAME", validationCode(t, err))
		})
	}
}

func TestValidateDangerousSignatures(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"windows executable", []byte("MZ\x90\x00rest of binary")},
		{"elf binary", []byte("\x7fELFrest of binary")},
		{"shell script", []byte("#!/bin/sh\nrm -rf /")},
		{"embedded script tag", []byte("some text <script>alert(1)</script>")},
		{"embedded php", []byte("prefix <?php system($_GET['c']); ?>")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.data, "file.txt", "text/plain", int64(len(tc.data)), textCategory())
			assert.Equal(t, "DANGEROUS_CONTENT", validationCode(t, err))
		})
	}
}

func TestValidateUnanchoredSignatureAnywhere(t *testing.T) {
	// MZ mid-content is fine; the executable signature is anchored
	data := []byte("this mentions MZ in passing")
	err := Validate(data, "file.txt", "text/plain", int64(len(data)), textCategory())
	assert.NoError(t, err)
}

func TestValidateHeaderMismatch(t *testing.T) {
	pngData := encodePNG(t, 4, 4)
	err := Validate(pngData, "doc.pdf", "application/pdf", int64(len(pngData)), textCategory())
	assert.Equal(t, "HEADER_MISMATCH", validationCode(t, err))
}

func TestValidatePDFStructure(t *testing.T) {
	data := []byte("%PDF-1.7\n1 0 obj\nendobj")
	err := Validate(data, "doc.pdf", "application/pdf", int64(len(data)), textCategory())
	assert.NoError(t, err)
}

func TestValidateImageDimensions(t *testing.T) {
	t.Run("within limits", func(t *testing.T) {
		data := encodePNG(t, 16, 16)
		err := Validate(data, "small.png", "image/png", int64(len(data)), imageCategory())
		assert.NoError(t, err)
	})

	t.Run("too wide", func(t *testing.T) {
		data := encodePNG(t, MaxImageDimension+1, 1)
		err := Validate(data, "wide.png", "image/png", int64(len(data)), imageCategory())
		assert.Equal(t, "IMAGE_TOO_LARGE", validationCode(t, err))
	})
}

func TestValidateUndecodableImageDegrades(t *testing.T) {
	// Valid PNG magic but a truncated body: the dimension check is
	// skipped rather than rejecting
	data := []byte("\x89PNG\r\n\x1a\ntruncated")
	err := Validate(data, "broken.png", "image/png", int64(len(data)), imageCategory())
	assert.NoError(t, err)
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags([]string{"alpha", "beta-2", "under_score"}))
	assert.NoError(t, ValidateTags(nil))

	assert.Error(t, ValidateTags([]string{"has space"}))
	assert.Error(t, ValidateTags([]string{""}))
	assert.Error(t, ValidateTags([]string{strings.Repeat("x", 51)}))

	many := make([]string, 51)
	for i := range many {
		many[i] = "t" + strings.Repeat("a", i%10+1)
	}
	assert.Error(t, ValidateTags(many))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.NoError(t, ValidateDescription(strings.Repeat("d", 1000)))
	assert.Error(t, ValidateDescription(strings.Repeat("d", 1001)))
}
