// Package testsupport holds shared fixtures for package tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// WriteVideo writes a stub MP4 at path: an ftyp box followed by an empty
// mdat box. It is not decodable; tests pair it with a fake sampler.Decoder.
func WriteVideo(t testing.TB, path string) string {
	t.Helper()

	var buf bytes.Buffer
	ftyp := []byte("ftypisom\x00\x00\x02\x00isomiso2mp41")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ftyp)+4))
	buf.Write(ftyp)
	_ = binary.Write(&buf, binary.BigEndian, uint32(8))
	buf.WriteString("mdat")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write video %s: %v", path, err)
	}
	return path
}

// FrameJPEG encodes a width x height gradient frame. seed shifts the colours
// so consecutive frames differ.
func FrameJPEG(t testing.TB, width, height, seed int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x*4 + seed*16), G: uint8(y * 7), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
