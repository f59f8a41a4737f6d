package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"strings"

	"github.com/evdrive/aiinverter"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `conventional Tj  150.0 C  15.00 Nm  [####################]`

	// centiseconds
	frameDelay = 5
	endDelay   = 300
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

var globPalette = color.Palette{
	color.Gray{0},
	color.Gray{253},
}

// Encoder renders the text of every frame it is given into one animated GIF. It implements
// aiinverter.OutputEncoder.
type Encoder struct {
	H, W int
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	maxH, maxW  int // maxHeight and maxWidth
	padH, padW  int // padding so everything don't start at the topleft
	initialized bool
}

// NewGifEncoder with height and width. Set Writer before calling Flush.
func NewGifEncoder(h, w int) *Encoder {
	return &Encoder{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		Drawer: font.Drawer{
			Src: image.Black,
		},
		out: &gif.GIF{LoopCount: -1},
	}
}

func lineHeight() int { return int(math.Ceil(fontsize * lineheight * dpi / 72)) }

func (enc *Encoder) init(lines []string) {
	enc.face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	enc.Drawer.Face = enc.face

	maxW := font.MeasureString(enc.Face, dummyLongString).Ceil()
	for _, l := range lines {
		maxW = max(maxW, font.MeasureString(enc.Face, l).Ceil())
	}
	w := maxW + 2*enc.padW
	h := (len(lines)+2)*lineHeight() + 2*enc.padH // + 2 for the drive name and the round

	w = min(w, enc.maxW)
	h = min(h, enc.maxH)
	if w == enc.maxW {
		enc.padW = 0
	}
	if h == enc.maxH {
		enc.padH = 0
	}
	enc.H = h
	enc.W = w
	enc.initialized = true
}

// Encode renders one frame.
func (enc *Encoder) Encode(ms aiinverter.MetaState) error {
	f := ms.Frame()
	text := strings.Split(f.String(), "\n")
	if !enc.initialized {
		enc.init(text)
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), globPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)
	enc.Dst = im

	dy := lineHeight()
	y := enc.padH + dy
	for _, s := range append([]string{ms.Name(), fmt.Sprintf("Round %d, Step %d", ms.Round(), ms.Step())}, text...) {
		enc.Dot = fixed.P(enc.padW, y)
		enc.DrawString(s)
		y += dy
	}

	delay := frameDelay
	if f.Done {
		delay = endDelay
	}
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, delay)
	return nil
}

// Len is the number of frames encoded so far.
func (enc *Encoder) Len() int { return len(enc.out.Image) }

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if enc.Writer == nil {
		return nil
	}
	return gif.EncodeAll(enc.Writer, enc.out)
}
