package common

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is the actual encoding of an image file, independent of its extension
type Format string

const (
	FormatWebP    Format = "webp"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatAVIF    Format = "avif"
	FormatUnknown Format = "unknown"
)

// headerLen is how many leading bytes are inspected
const headerLen = 12

var (
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
	magicPNG  = []byte("\x89PNG\r\n\x1a\n")
	magicJPEG = []byte("\xff\xd8\xff")
	magicFtyp = []byte("ftyp")
	magicAVIF = []byte("avif")
)

// ImageExtensions are the extensions picked up when scanning a directory.
// Only the lower-case and fully upper-case spellings match.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".avif", ".gif"}

// DetectFormat sniffs the format of the file at path.
// Unreadable files are reported as FormatUnknown.
func DetectFormat(path string) Format {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown
	}
	defer f.Close()

	header := make([]byte, headerLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return FormatUnknown
	}

	return DetectBytes(header[:n])
}

// DetectBytes sniffs the format from the leading bytes of a file
func DetectBytes(b []byte) Format {
	if len(b) > headerLen {
		b = b[:headerLen]
	}

	switch {
	case bytes.HasPrefix(b, magicRIFF) && bytes.Contains(b, magicWEBP):
		return FormatWebP
	case bytes.HasPrefix(b, magicPNG):
		return FormatPNG
	case bytes.HasPrefix(b, magicJPEG):
		return FormatJPEG
	case bytes.Contains(b, magicFtyp) && bytes.Contains(b, magicAVIF):
		return FormatAVIF
	default:
		return FormatUnknown
	}
}

// IsImageName reports whether name carries one of ImageExtensions
func IsImageName(name string) bool {
	return ExtensionRank(name) >= 0
}

// ExtensionRank returns the scan order of the file's extension: lower-case
// spellings of each extension come before the upper-case ones.
// It returns -1 for names that are not picked up.
func ExtensionRank(name string) int {
	ext := filepath.Ext(name)
	for i, e := range ImageExtensions {
		switch ext {
		case e:
			return 2 * i
		case strings.ToUpper(e):
			return 2*i + 1
		}
	}
	return -1
}

// SwapExt replaces the extension of path with ext (which includes the dot)
func SwapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// intermediateMarker tags the temporary PNGs written next to an input file
const intermediateMarker = ".temp_"

// IntermediateName returns the temporary file name for a pipeline stage
func IntermediateName(input, stage string) string {
	return input + intermediateMarker + stage + ".png"
}

// IsIntermediate reports whether name is a pipeline temporary file
func IsIntermediate(name string) bool {
	return strings.Contains(filepath.Base(name), intermediateMarker)
}
