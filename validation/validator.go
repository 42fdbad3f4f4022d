// Package validation rejects unsafe or malformed uploads before any
// write occurs. Validate is pure: it touches neither storage nor the
// registry, so a rejection leaves no partial state behind.
package validation

import (
	"bytes"
	"image"
	"strings"

	// registered for image.DecodeConfig in the dimension check
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"teamvault-backend/apperr"
	"teamvault-backend/config"
)

// MaxImageDimension is the per-side pixel limit for decoded images
const MaxImageDimension = 10000

const maxFilenameLength = 255

// reservedNames are Windows device names that must not be used as a
// filename stem regardless of extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Validate runs the ordered upload checks and returns a ValidationError
// on the first failure. The checks are fail-fast: size, declared mime,
// filename safety, dangerous byte signatures, header/mime agreement,
// then type-specific structure.
func Validate(data []byte, name, declaredMime string, size int64, cfg config.CategoryConfig) error {
	if size > cfg.MaxSize {
		return apperr.NewValidation("FILE_TOO_LARGE",
			"file size %d exceeds category limit of %d bytes", size, cfg.MaxSize)
	}

	if !cfg.AllowsMime(declaredMime) {
		return apperr.NewValidation("INVALID_FILE_TYPE",
			"mime type %q not allowed for this category", declaredMime)
	}

	if err := checkFilename(name); err != nil {
		return err
	}

	if err := scanSignatures(data); err != nil {
		return err
	}

	if err := checkHeader(data, declaredMime); err != nil {
		return err
	}

	return checkStructure(data, declaredMime)
}

func checkFilename(name string) error {
	if name == "" || len(name) > maxFilenameLength {
		return apperr.NewValidation("INVALID_FILENAME", "filename must be 1-%d characters", maxFilenameLength)
	}
	if strings.Contains(name, "..") {
		return apperr.NewValidation("INVALID_FILENAME", "filename contains path traversal sequence")
	}
	if strings.ContainsAny(name, "/\\") {
		return apperr.NewValidation("INVALID_FILENAME", "filename contains path separator")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7F {
			return apperr.NewValidation("INVALID_FILENAME", "filename contains control characters")
		}
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return apperr.NewValidation("INVALID_FILENAME", "filename must not start or end with a dot")
	}

	stem := name
	if idx := strings.IndexByte(name, '.'); idx != -1 {
		stem = name[:idx]
	}
	if reservedNames[strings.ToUpper(stem)] {
		return apperr.NewValidation("INVALID_FILENAME", "filename uses a reserved device name")
	}

	return nil
}

func scanSignatures(data []byte) error {
	for _, sig := range dangerousSignatures {
		if sig.anchored {
			if bytes.HasPrefix(data, sig.pattern) {
				return apperr.NewValidation("DANGEROUS_CONTENT",
					"content matches %s signature", sig.label)
			}
			continue
		}
		if bytes.Contains(data, sig.pattern) {
			return apperr.NewValidation("DANGEROUS_CONTENT",
				"content matches %s signature", sig.label)
		}
	}
	return nil
}

func checkHeader(data []byte, declaredMime string) error {
	magics, known := mimeMagic[declaredMime]
	if !known {
		return nil
	}
	for _, magic := range magics {
		if bytes.HasPrefix(data, magic) {
			return nil
		}
	}
	return apperr.NewValidation("HEADER_MISMATCH",
		"file header does not match declared type %q", declaredMime)
}

func checkStructure(data []byte, declaredMime string) error {
	switch {
	case strings.HasPrefix(declaredMime, "image/"):
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// Header already matched; an undecodable body degrades to
			// skipping the dimension check rather than rejecting.
			return nil
		}
		if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
			return apperr.NewValidation("IMAGE_TOO_LARGE",
				"image dimensions %dx%d exceed %dpx per side", cfg.Width, cfg.Height, MaxImageDimension)
		}
	case declaredMime == "application/pdf":
		if !bytes.HasPrefix(data, pdfMagic) {
			return apperr.NewValidation("INVALID_PDF", "missing PDF header")
		}
	}
	return nil
}
