package clip

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"go.klb.dev/cbportal/internal/payload"
)

func testImage() *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	img.SetColorIndex(1, 1, 1)
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSampleText(t *testing.T) {
	m := NewMemory()
	m.SetText("hello")

	s, ok, err := NewSampler(m).Sample()
	if err != nil || !ok {
		t.Fatalf("Sample = (_, %v, %v), want ok", ok, err)
	}
	if s.Type != payload.TypeText || string(s.Data) != "hello" {
		t.Fatalf("Sample = %q (%s), want hello (text)", s.Data, s.Type)
	}
	if s.Hash != payload.Hash([]byte("hello")) {
		t.Fatalf("hash = %s, want hash of plaintext", s.Hash)
	}
}

func TestSampleBlank(t *testing.T) {
	for _, text := range []string{"", " ", "\n\t  \r\n"} {
		m := NewMemory()
		m.SetText(text)
		_, ok, err := NewSampler(m).Sample()
		if err != nil {
			t.Fatalf("Sample(%q): %v", text, err)
		}
		if ok {
			t.Fatalf("Sample(%q) reported publishable content", text)
		}
	}
}

func TestSampleImagePNG(t *testing.T) {
	raw := encodePNG(t)
	m := NewMemory()
	m.SetImage(raw)

	s, ok, err := NewSampler(m).Sample()
	if err != nil || !ok {
		t.Fatalf("Sample = (_, %v, %v), want ok", ok, err)
	}
	if s.Type != payload.TypeImage {
		t.Fatalf("type = %s, want image", s.Type)
	}
	if want := base64.StdEncoding.EncodeToString(raw); string(s.Data) != want {
		t.Fatal("PNG should be carried unchanged as base64 text")
	}
	if s.Hash != payload.Hash(s.Data) {
		t.Fatal("image hash must be over the base64 text")
	}
}

func TestSampleImageConverted(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(), nil); err != nil {
		t.Fatal(err)
	}
	m := NewMemory()
	m.SetImage(buf.Bytes())

	s, ok, err := NewSampler(m).Sample()
	if err != nil || !ok {
		t.Fatalf("Sample = (_, %v, %v), want ok", ok, err)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(s.Data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(decoded, pngMagic) {
		t.Fatal("GIF clipboard image was not re-encoded as PNG")
	}
	if _, err := png.Decode(bytes.NewReader(decoded)); err != nil {
		t.Fatalf("re-encoded image does not decode: %v", err)
	}
}

func TestSampleUndecodableImageFallsBackToText(t *testing.T) {
	m := NewMemory()
	m.image = []byte("not an image")
	m.text = []byte("caption")

	s, ok, err := NewSampler(m).Sample()
	if err != nil || !ok {
		t.Fatalf("Sample = (_, %v, %v), want ok", ok, err)
	}
	if s.Type != payload.TypeText || string(s.Data) != "caption" {
		t.Fatalf("Sample = %q (%s), want caption (text)", s.Data, s.Type)
	}
}

func TestApply(t *testing.T) {
	m := NewMemory()
	if err := Apply(m, []byte("hello"), payload.TypeText); err != nil {
		t.Fatal(err)
	}
	if m.Text() != "hello" {
		t.Fatalf("clipboard = %q, want hello", m.Text())
	}

	raw := encodePNG(t)
	if err := Apply(m, []byte(base64.StdEncoding.EncodeToString(raw)), payload.TypeImage); err != nil {
		t.Fatal(err)
	}
	img, _ := m.ReadImage()
	if !bytes.Equal(img, raw) {
		t.Fatal("applied image differs from the original PNG")
	}
	if m.Text() != "" {
		t.Fatal("writing an image should replace the text")
	}
	if m.Writes() != 2 {
		t.Fatalf("Writes = %d, want 2", m.Writes())
	}

	if err := Apply(m, []byte("%%%"), payload.TypeImage); err == nil {
		t.Fatal("Apply accepted a non-base64 image payload")
	}
}

func TestApplySampleRoundTrip(t *testing.T) {
	src := NewMemory()
	src.SetImage(encodePNG(t))
	s, _, _ := NewSampler(src).Sample()

	dst := NewMemory()
	if err := Apply(dst, s.Data, s.Type); err != nil {
		t.Fatal(err)
	}
	again, ok, _ := NewSampler(dst).Sample()
	if !ok || again.Hash != s.Hash {
		t.Fatal("sampling an applied image must reproduce the sender's hash")
	}
}
