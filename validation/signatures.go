package validation

// byteSignature is a byte pattern that rejects an upload when matched.
// Anchored signatures must appear at offset 0; unanchored ones anywhere.
type byteSignature struct {
	pattern  []byte
	anchored bool
	label    string
}

// dangerousSignatures covers executable headers and embedded script markers.
// A match anywhere in the scan window rejects the upload outright.
var dangerousSignatures = []byteSignature{
	{pattern: []byte{0x4D, 0x5A}, anchored: true, label: "windows executable"},
	{pattern: []byte{0x7F, 0x45, 0x4C, 0x46}, anchored: true, label: "elf executable"},
	{pattern: []byte{0xCA, 0xFE, 0xBA, 0xBE}, anchored: true, label: "mach-o/java executable"},
	{pattern: []byte("#!"), anchored: true, label: "script shebang"},
	{pattern: []byte("<script"), anchored: false, label: "embedded script tag"},
	{pattern: []byte("<?php"), anchored: false, label: "embedded php"},
}

// mimeMagic maps a declared mime type to the leading bytes real content
// of that type must carry. Declared types absent from this table skip
// the header check.
var mimeMagic = map[string][][]byte{
	"image/png":       {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/gif":       {[]byte("GIF87a"), []byte("GIF89a")},
	"image/webp":      {[]byte("RIFF")},
	"application/pdf": {[]byte("%PDF-")},
	"application/zip": {{0x50, 0x4B, 0x03, 0x04}},
}

// pdfMagic is the mandatory PDF file header
var pdfMagic = []byte("%PDF-")
