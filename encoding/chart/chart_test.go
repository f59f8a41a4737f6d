package chart

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteTo(t *testing.T) {
	c := New("loss", "epoch", "loss",
		Index("thermal", []float64{1, 0.5, 0.25, 0.2}),
		Index("observer", []float64{2, 1, 0.6}),
	)
	c.LogY = true
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(buf.Len()), n)
	im, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// 8 × 5 inches at 150 dpi
	assert.Equal(t, 1200, im.Bounds().Dx())
	assert.Equal(t, 750, im.Bounds().Dy())
}

func TestInvalid(t *testing.T) {
	var buf bytes.Buffer
	_, err := New("empty", "", "").WriteTo(&buf)
	assert.Error(t, err)

	_, err = New("ragged", "", "", Series{Name: "a", X: []float64{1, 2}, Y: []float64{1}}).WriteTo(&buf)
	assert.Error(t, err)
}

func TestLines(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "tj.png")
	s := Series{Name: "Tj", X: []float64{0, 0.1, 0.2}, Y: []float64{25, 60, 80}}
	if err := Lines(filename, "junction", "t [s]", "Tj [C]", s); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filename)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, fi.Size() > 0)
}
