package roulette

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	colorHub       = color.RGBA{31, 41, 55, 255}  // #1F2937
	colorPointer   = color.RGBA{220, 38, 38, 255} // #DC2626
	colorSeparator = color.RGBA{255, 255, 255, 255}
	colorLabel     = color.RGBA{31, 41, 55, 255}
	colorLabelEdge = color.RGBA{255, 255, 255, 255}
)

const (
	rendererMargin    = 10
	labelRadiusRatio  = 0.6
	hubRadiusRatio    = 0.1
	litLightenAmount  = 60
	minRendererSize   = 64
	defaultLabelPoint = 14
)

// ParseHexColor parses "#RGB" or "#RRGGBB"
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, ErrInvalidConfig.WithDetails(fmt.Sprintf("invalid colour %q", s))
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, ErrInvalidConfig.WithDetails(fmt.Sprintf("invalid colour %q", s)).WithCause(err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// lighten brightens every channel by amount, saturating at 255
func lighten(c color.RGBA, amount uint8) color.RGBA {
	add := func(v uint8) uint8 {
		if int(v)+int(amount) > 255 {
			return 255
		}
		return v + amount
	}
	return color.RGBA{R: add(c.R), G: add(c.G), B: add(c.B), A: c.A}
}

func sectorColor(s Sector) color.RGBA {
	c, err := ParseHexColor(s.Color)
	if err != nil {
		c, _ = ParseHexColor(Palette[s.Index%len(Palette)])
	}
	return c
}

// Renderer rasterizes frames: sectors from the pointer clockwise, rotated by the frame angle,
// labels on wide enough sectors, a hub and the fixed pointer at the top.
type Renderer struct {
	size int
	face font.Face
}

// NewRenderer creates a renderer producing size×size images
func NewRenderer(size int) (*Renderer, error) {
	if size < minRendererSize {
		return nil, ErrInvalidConfig.WithDetails(fmt.Sprintf("renderer size must be at least %d", minRendererSize))
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	face := truetype.NewFace(regular, &truetype.Options{
		Size:    defaultLabelPoint * float64(size) / 450,
		Hinting: font.HintingFull,
	})
	return &Renderer{size: size, face: face}, nil
}

// Size returns the image edge length
func (r *Renderer) Size() int { return r.size }

// Radius returns the wheel radius in pixels
func (r *Renderer) Radius() float64 { return float64(r.size)/2 - rendererMargin }

// Render draws one frame
func (r *Renderer) Render(frame Frame) image.Image {
	dc := gg.NewContext(r.size, r.size)
	if !frame.TransparentBg {
		dc.SetColor(color.White)
		dc.Clear()
	}

	cx, cy := float64(r.size)/2, float64(r.size)/2
	radius := r.Radius()

	for i, s := range frame.Sectors {
		if s.Width() <= 0 {
			continue
		}
		start, end := s.Start+frame.Angle, s.End+frame.Angle

		fill := sectorColor(s)
		if frame.LitIndex == i && frame.LightOn {
			fill = lighten(fill, litLightenAmount)
		}

		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, radius, start, end)
		dc.ClosePath()
		dc.SetColor(fill)
		dc.Fill()
	}

	// 分隔线
	if len(frame.Sectors) > 1 {
		dc.SetLineWidth(1)
		dc.SetColor(colorSeparator)
		for _, s := range frame.Sectors {
			if s.Width() <= 0 {
				continue
			}
			a := s.Start + frame.Angle
			dc.MoveTo(cx, cy)
			dc.LineTo(cx+math.Cos(a)*radius, cy+math.Sin(a)*radius)
			dc.Stroke()
		}
	}

	r.drawLabels(dc, frame, cx, cy, radius)

	// 中心轴
	dc.SetColor(colorHub)
	dc.DrawCircle(cx, cy, radius*hubRadiusRatio)
	dc.Fill()

	// 固定指针
	scale := float64(r.size) / 600
	dc.NewSubPath()
	dc.MoveTo(cx, cy-radius)
	dc.LineTo(cx-15*scale, cy-radius+30*scale)
	dc.LineTo(cx+15*scale, cy-radius+30*scale)
	dc.ClosePath()
	dc.SetColor(colorPointer)
	dc.Fill()

	return dc.Image()
}

func (r *Renderer) drawLabels(dc *gg.Context, frame Frame, cx, cy, radius float64) {
	dc.SetFontFace(r.face)
	for _, s := range frame.Sectors {
		if s.Width() < LabelMinAngle || s.Name == "" {
			continue
		}
		mid := s.Mid() + frame.Angle
		x := cx + math.Cos(mid)*radius*labelRadiusRatio
		y := cy + math.Sin(mid)*radius*labelRadiusRatio

		dc.Push()
		dc.Translate(x, y)
		dc.Rotate(mid + math.Pi/2)
		dc.SetColor(colorLabelEdge)
		dc.DrawStringAnchored(s.Name, 1, 1, 0.5, 0.5)
		dc.SetColor(colorLabel)
		dc.DrawStringAnchored(s.Name, 0, 0, 0.5, 0.5)
		dc.Pop()
	}
}

// GIFRecorder is a FrameSink that keeps every n-th frame and encodes an animated GIF
type GIFRecorder struct {
	mu       sync.Mutex
	renderer *Renderer
	every    int
	delay    int // 1/100 s per kept frame
	seen     int
	palette  color.Palette
	images   []*image.Paletted
	delays   []int
}

// NewGIFRecorder records one of every `every` frames produced at frameInterval
func NewGIFRecorder(renderer *Renderer, every int, frameIntervalMs int) *GIFRecorder {
	if every < 1 {
		every = 1
	}
	delay := every * frameIntervalMs / 10
	if delay < 2 {
		delay = 2
	}
	return &GIFRecorder{renderer: renderer, every: every, delay: delay}
}

func (g *GIFRecorder) buildPalette(frame Frame) color.Palette {
	p := color.Palette{color.Transparent, color.White, color.Black, colorHub, colorPointer}
	seen := map[color.RGBA]bool{}
	for _, s := range frame.Sectors {
		c := sectorColor(s)
		for _, v := range []color.RGBA{c, lighten(c, litLightenAmount)} {
			if !seen[v] && len(p) < 256 {
				seen[v] = true
				p = append(p, v)
			}
		}
	}
	return p
}

// DrawFrame renders and keeps the frame if it is due
func (g *GIFRecorder) DrawFrame(frame Frame) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seen++
	// 最后一帧(带结果)总是保留
	if (g.seen-1)%g.every != 0 && frame.Outcome == nil {
		return
	}
	if g.palette == nil {
		g.palette = g.buildPalette(frame)
	}

	img := g.renderer.Render(frame)
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, g.palette)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	g.images = append(g.images, paletted)
	g.delays = append(g.delays, g.delay)
}

// Hold repeats the last kept frame for d hundredths of a second
func (g *GIFRecorder) Hold(hundredths int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.delays) > 0 {
		g.delays[len(g.delays)-1] += hundredths
	}
}

// Len returns the number of kept frames
func (g *GIFRecorder) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.images)
}

// Encode writes the animation
func (g *GIFRecorder) Encode(w io.Writer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.images) == 0 {
		return ErrEmptyItems.WithDetails("no frames recorded")
	}
	return gif.EncodeAll(w, &gif.GIF{Image: g.images, Delay: g.delays})
}
