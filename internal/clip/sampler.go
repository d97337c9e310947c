package clip

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go.klb.dev/cbportal/internal/payload"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Sample is a normalized clipboard snapshot ready for encoding.
// Text is carried as UTF-8; images as the base64 text of their PNG bytes.
type Sample struct {
	Data []byte
	Type payload.Type
	Hash string
}

// Sampler reads a Backend and normalizes what it finds.
type Sampler struct {
	b Backend
}

// NewSampler returns a Sampler over b.
func NewSampler(b Backend) *Sampler {
	return &Sampler{b: b}
}

// Sample reads the clipboard. An image takes precedence over text. ok is
// false when there is nothing worth publishing (no image and blank text).
func (s *Sampler) Sample() (Sample, bool, error) {
	img, err := s.b.ReadImage()
	if err != nil {
		return Sample{}, false, fmt.Errorf("read image: %w", err)
	}
	if len(img) > 0 {
		encoded, err := normalizePNG(img)
		if err == nil {
			data := []byte(base64.StdEncoding.EncodeToString(encoded))
			return Sample{Data: data, Type: payload.TypeImage, Hash: payload.Hash(data)}, true, nil
		}
		slog.Debug("clipboard image not decodable, sampling text instead", "err", err)
	}

	text, err := s.b.ReadText()
	if err != nil {
		return Sample{}, false, fmt.Errorf("read text: %w", err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return Sample{}, false, nil
	}
	return Sample{Data: text, Type: payload.TypeText, Hash: payload.Hash(text)}, true, nil
}

// Apply writes a decoded payload buffer to b as a single clipboard write.
func Apply(b Backend, data []byte, t payload.Type) error {
	switch t {
	case payload.TypeText:
		return b.WriteText(data)
	case payload.TypeImage:
		img, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return fmt.Errorf("image payload not base64: %w", err)
		}
		return b.WriteImage(img)
	default:
		return fmt.Errorf("unsupported content type: %s", t)
	}
}

// normalizePNG returns img unchanged if it is already PNG, otherwise decodes
// it with any registered format and re-encodes it as PNG.
func normalizePNG(img []byte) ([]byte, error) {
	if bytes.HasPrefix(img, pngMagic) {
		return img, nil
	}
	decoded, format, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	return buf.Bytes(), nil
}
