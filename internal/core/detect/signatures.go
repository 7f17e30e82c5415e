package detect

import (
	"bytes"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

// signature is one magic-byte rule. A rule with a secondary check that
// fails is skipped, and matching continues with the next rule.
type signature struct {
	offset    int
	pattern   []byte
	mediaType domain.MediaType
	format    string
	secondary func(data []byte) bool
}

const secondaryScanWindow = 4096

func defaultSignatures() []signature {
	return []signature{
		{offset: 0, pattern: []byte("%PDF"), mediaType: domain.MediaTypeDocument, format: "pdf"},
		{offset: 0, pattern: []byte("{\\rtf"), mediaType: domain.MediaTypeDocument, format: "rtf"},
		// Legacy OLE compound documents (.doc, .xls, .ppt).
		{offset: 0, pattern: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, mediaType: domain.MediaTypeDocument, format: "ole-compound"},
		// ZIP is only accepted as a document when it carries an Office
		// package marker; other ZIP payloads fall through.
		{offset: 0, pattern: []byte("PK\x03\x04"), mediaType: domain.MediaTypeDocument, format: "office-openxml", secondary: looksLikeOfficePackage},

		{offset: 0, pattern: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, mediaType: domain.MediaTypeImage, format: "png"},
		{offset: 0, pattern: []byte{0xFF, 0xD8, 0xFF}, mediaType: domain.MediaTypeImage, format: "jpeg"},
		{offset: 0, pattern: []byte("GIF8"), mediaType: domain.MediaTypeImage, format: "gif"},
		// "BM" alone is too weak (any text starting "BM" matches), so the
		// rest of the file header is validated too.
		{offset: 0, pattern: []byte("BM"), mediaType: domain.MediaTypeImage, format: "bmp", secondary: looksLikeBMPHeader},
		{offset: 0, pattern: []byte("II*\x00"), mediaType: domain.MediaTypeImage, format: "tiff"},
		{offset: 0, pattern: []byte("MM\x00*"), mediaType: domain.MediaTypeImage, format: "tiff"},
		// RIFF containers split by payload tag: WEBP is an image, AVI a
		// video, anything else (WAVE audio) is not ours.
		{offset: 0, pattern: []byte("RIFF"), mediaType: domain.MediaTypeImage, format: "webp", secondary: riffPayloadIs("WEBP")},
		{offset: 0, pattern: []byte("RIFF"), mediaType: domain.MediaTypeVideo, format: "avi", secondary: riffPayloadIs("AVI ")},

		{offset: 4, pattern: []byte("ftyp"), mediaType: domain.MediaTypeVideo, format: "mp4"},
		{offset: 0, pattern: []byte{0x1A, 0x45, 0xDF, 0xA3}, mediaType: domain.MediaTypeVideo, format: "matroska"},
		{offset: 0, pattern: []byte("FLV\x01"), mediaType: domain.MediaTypeVideo, format: "flv"},
		{offset: 0, pattern: []byte{0x00, 0x00, 0x01, 0xBA}, mediaType: domain.MediaTypeVideo, format: "mpeg"},
	}
}

func looksLikeOfficePackage(data []byte) bool {
	window := data
	if len(window) > secondaryScanWindow {
		window = window[:secondaryScanWindow]
	}
	for _, marker := range [][]byte{
		[]byte("[Content_Types].xml"),
		[]byte("word/"),
		[]byte("xl/"),
		[]byte("ppt/"),
	} {
		if bytes.Contains(window, marker) {
			return true
		}
	}
	return false
}

// looksLikeBMPHeader validates the fixed BITMAPFILEHEADER layout beyond the
// "BM" tag: both reserved words zero and a known DIB header size.
func looksLikeBMPHeader(data []byte) bool {
	if len(data) < 18 {
		return false
	}
	if data[6] != 0 || data[7] != 0 || data[8] != 0 || data[9] != 0 {
		return false
	}
	dibSize := uint32(data[14]) | uint32(data[15])<<8 | uint32(data[16])<<16 | uint32(data[17])<<24
	switch dibSize {
	case 12, 40, 52, 56, 64, 108, 124:
		return true
	}
	return false
}

func riffPayloadIs(tag string) func([]byte) bool {
	return func(data []byte) bool {
		if len(data) < 12 {
			return false
		}
		return string(data[8:12]) == tag
	}
}
