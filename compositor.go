// compositor.go - Frame composition: scale-to-fit, overlay blend, flash

/*
Visual Hive - beat-synchronised visual performance engine
https://github.com/visualhive/visual-hive
License: GPLv3 or later
*/

package main

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"golang.org/x/image/draw"
)

// Compositor assembles one output frame per engine iteration: the looping
// background scaled to fit the target, the tinted foreground centered on
// top with the bounce scale applied, or a solid flash frame while the
// strobe is lit. It is used from the orchestration goroutine only and
// reuses its canvases across frames; the engine copies the result before
// handing it off.
type Compositor struct {
	width  int
	height int
	flash  *image.RGBA
	canvas *image.RGBA // reused across frames; callers clone before handoff
}

func NewCompositor(width, height int) *Compositor {
	c := &Compositor{width: width, height: height}
	c.flash = image.NewRGBA(image.Rect(0, 0, width, height))
	fillRGBA(c.flash, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	c.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	return c
}

func (c *Compositor) Size() (int, int) { return c.width, c.height }

// FlashFrame returns the solid strobe frame. Callers must not mutate it.
func (c *Compositor) FlashFrame() *image.RGBA { return c.flash }

// ScaleToFit scales src to the largest size that fits the target while
// preserving aspect ratio, centered on a black letterbox canvas. The
// returned image is the compositor's reused canvas.
func (c *Compositor) ScaleToFit(src *image.RGBA) *image.RGBA {
	out := c.canvas
	fillRGBA(out, color.NRGBA{A: 255})
	if src == nil {
		return out
	}
	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return out
	}

	srcAspect := float64(sw) / float64(sh)
	dstAspect := float64(c.width) / float64(c.height)

	var nw, nh int
	if srcAspect > dstAspect {
		nw = c.width
		nh = int(float64(nw) / srcAspect)
	} else {
		nh = c.height
		nw = int(float64(nh) * srcAspect)
	}
	if nw <= 0 || nh <= 0 {
		return out
	}

	x := (c.width - nw) / 2
	y := (c.height - nh) / 2
	rect := image.Rect(x, y, x+nw, y+nh)
	draw.ApproxBiLinear.Scale(out, rect, src, src.Bounds(), draw.Src, nil)
	return out
}

// BlendForeground draws the foreground centered on dst. The foreground is
// sized to scalePercent of the target width (clamped to fit), multiplied
// by the bounce scale, and its alpha channel masks a solid tint fill so
// one white glyph asset can appear in any configured color.
func (c *Compositor) BlendForeground(dst, fg *image.RGBA, tint color.NRGBA, scalePercent, bounceScale float64) {
	if dst == nil || fg == nil {
		return
	}
	fw := fg.Bounds().Dx()
	fh := fg.Bounds().Dy()
	if fw == 0 || fh == 0 {
		return
	}

	targetW := float64(c.width) * scalePercent / 100 * bounceScale
	aspect := float64(fh) / float64(fw)
	targetH := targetW * aspect
	if targetW > float64(c.width) {
		targetW = float64(c.width)
		targetH = targetW * aspect
	}
	if targetH > float64(c.height) {
		targetH = float64(c.height)
		targetW = targetH / aspect
	}
	nw := int(targetW)
	nh := int(targetH)
	if nw <= 0 || nh <= 0 {
		return
	}

	scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), fg, fg.Bounds(), draw.Src, nil)

	x := (c.width - nw) / 2
	y := (c.height - nh) / 2
	rect := image.Rect(x, y, x+nw, y+nh).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}

	// Solid tint through the foreground's alpha channel.
	tintFill := image.NewUniform(tint)
	mask := alphaMask(scaled)
	stddraw.DrawMask(dst, rect, tintFill, image.Point{}, mask, scaled.Bounds().Min, stddraw.Over)
}

// alphaMask extracts the alpha channel of img as a draw mask.
func alphaMask(img *image.RGBA) *image.Alpha {
	b := img.Bounds()
	mask := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		srcRow := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		dstRow := mask.Pix[mask.PixOffset(b.Min.X, y):mask.PixOffset(b.Max.X, y)]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4+3]
		}
	}
	return mask
}

func fillRGBA(img *image.RGBA, c color.NRGBA) {
	stddraw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, stddraw.Src)
}

// CloneFrame copies a frame so the handoff queue owns it wholesale and the
// compositor can keep reusing its scratch buffers.
func CloneFrame(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}
