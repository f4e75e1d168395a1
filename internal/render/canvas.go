package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/star/orbitviz/internal/frames"
	"github.com/star/orbitviz/internal/orbit"
)

var (
	earthColor      = color.RGBA{R: 70, G: 130, B: 200, A: 255}
	backgroundColor = color.RGBA{R: 12, G: 14, B: 28, A: 255}
	textColor       = color.RGBA{R: 220, G: 220, B: 230, A: 255}
)

var errCanvasClosed = errors.New("canvas closed")

// Canvas is the drawing context of one export. Canvases are never shared
// between runs; Close releases the prepared geometry.
type Canvas struct {
	seq    *frames.Sequence
	width  vg.Length
	height vg.Length
	proj   projection

	earth      []plotter.XYs
	background []plotter.XYs
	legend     []*plotter.Line
}

// NewCanvas prepares the static layers of seq for width x height pixel frames.
func NewCanvas(seq *frames.Sequence, width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	c := &Canvas{
		seq:    seq,
		width:  vg.Length(width),
		height: vg.Length(height),
		proj:   newProjection(viewElevation, viewAzimuth),
	}
	for _, p := range seq.Earth {
		c.earth = append(c.earth, c.xys(p.Points))
	}
	for _, p := range seq.Background {
		c.background = append(c.background, c.xys(p.Points))
	}
	for i := range seq.Series {
		l, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}})
		if err != nil {
			return nil, fmt.Errorf("legend line: %w", err)
		}
		l.LineStyle.Color = seriesColor(i)
		l.LineStyle.Width = vg.Points(2)
		c.legend = append(c.legend, l)
	}
	return c, nil
}

// Close releases the canvas. Drawing afterwards fails.
func (c *Canvas) Close() error {
	c.seq = nil
	c.earth, c.background, c.legend = nil, nil, nil
	return nil
}

// Frames returns the number of frames available.
func (c *Canvas) Frames() int {
	if c.seq == nil {
		return 0
	}
	return len(c.seq.Frames)
}

// DrawFrame rasterizes frame i.
func (c *Canvas) DrawFrame(i int) (image.Image, error) {
	if c.seq == nil {
		return nil, errCanvasClosed
	}
	if i < 0 || i >= len(c.seq.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", i, len(c.seq.Frames))
	}
	f := c.seq.Frames[i]

	p := plot.New()
	p.BackgroundColor = backgroundColor
	p.Title.Text = c.seq.Title + "  " + f.Caption
	p.Title.TextStyle.Color = textColor
	p.X.Min, p.X.Max = -c.seq.Extent, c.seq.Extent
	p.Y.Min, p.Y.Max = -c.seq.Extent, c.seq.Extent
	if c.seq.Dimension == frames.Spatial {
		p.HideAxes()
	} else {
		p.X.Label.Text = "x (Mm)"
		p.Y.Label.Text = "y (Mm)"
		for _, ax := range []*plot.Axis{&p.X, &p.Y} {
			ax.LineStyle.Color = textColor
			ax.Label.TextStyle.Color = textColor
			ax.Tick.LineStyle.Color = textColor
			ax.Tick.Label.Color = textColor
		}
	}

	for _, xys := range c.earth {
		if err := addLine(p, xys, earthColor, 1, true); err != nil {
			return nil, err
		}
	}
	for j, xys := range c.background {
		if err := addLine(p, xys, fade(seriesColor(c.seq.Background[j].Series)), 1, true); err != nil {
			return nil, err
		}
	}
	for _, path := range f.Paths {
		if err := addLine(p, c.xys(path.Points), seriesColor(path.Series), 2, false); err != nil {
			return nil, err
		}
	}
	for _, m := range f.Markers {
		x, y := c.point(m.Position)
		s, err := plotter.NewScatter(plotter.XYs{{X: x, Y: y}})
		if err != nil {
			return nil, fmt.Errorf("marker: %w", err)
		}
		s.GlyphStyle.Color = seriesColor(m.Series)
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}

	for j, l := range c.legend {
		p.Legend.Add(c.seq.Series[j], l)
	}
	p.Legend.Top = true
	p.Legend.TextStyle.Color = textColor

	img := vgimg.NewWith(vgimg.UseWH(c.width, c.height), vgimg.UseDPI(int(vg.Inch)))
	p.Draw(draw.New(img))
	return img.Image(), nil
}

func (c *Canvas) point(v orbit.Vec3) (x, y float64) {
	if c.seq.Dimension == frames.Spatial {
		return c.proj.project(v)
	}
	return v[0], v[1]
}

func (c *Canvas) xys(pts []orbit.Vec3) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, v := range pts {
		out[i].X, out[i].Y = c.point(v)
	}
	return out
}

// addLine skips degenerate paths; a line needs two points to be stroked.
func addLine(p *plot.Plot, xys plotter.XYs, col color.Color, width float64, dashed bool) error {
	if len(xys) < 2 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("path: %w", err)
	}
	l.LineStyle.Color = col
	l.LineStyle.Width = vg.Points(width)
	if dashed {
		l.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	}
	p.Add(l)
	return nil
}

func seriesColor(i int) color.Color {
	if i < 0 {
		return earthColor
	}
	return plotutil.Color(i)
}

func fade(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 110}
}
