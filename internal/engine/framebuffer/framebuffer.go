// Package framebuffer renders preview frames offscreen so they can be read
// back as images.
package framebuffer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Framebuffer is an offscreen target with an RGBA8 color texture and a
// 24-bit depth renderbuffer.
type Framebuffer struct {
	id    uint32
	color uint32
	depth uint32
	w, h  int
}

// New creates a framebuffer of the given size. Sizes below one pixel are
// raised to one.
func New(width, height int) (*Framebuffer, error) {
	fb := &Framebuffer{w: max(width, 1), h: max(height, 1)}

	gl.GenFramebuffers(1, &fb.id)
	gl.GenTextures(1, &fb.color)
	gl.GenRenderbuffers(1, &fb.depth)
	fb.allocate()

	restore := fb.Bind()
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.color, 0)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depth)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	restore()

	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return nil, fmt.Errorf("framebuffer %dx%d incomplete: 0x%x", fb.w, fb.h, status)
	}
	return fb, nil
}

func (fb *Framebuffer) allocate() {
	gl.BindTexture(gl.TEXTURE_2D, fb.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(fb.w), int32(fb.h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindRenderbuffer(gl.RENDERBUFFER, fb.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(fb.w), int32(fb.h))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

// Bind makes this framebuffer the render target with a viewport covering
// it. The returned function restores the previous target and viewport.
func (fb *Framebuffer) Bind() (restore func()) {
	var prev int32
	var vp [4]int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)
	gl.GetIntegerv(gl.VIEWPORT, &vp[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	gl.Viewport(0, 0, int32(fb.w), int32(fb.h))
	return func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev))
		gl.Viewport(vp[0], vp[1], vp[2], vp[3])
	}
}

// Capture runs draw with the framebuffer bound and returns the result.
// draw is expected to clear the target itself.
func (fb *Framebuffer) Capture(draw func()) *image.NRGBA {
	restore := fb.Bind()
	defer restore()

	draw()
	pixels := make([]byte, fb.w*fb.h*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(fb.w), int32(fb.h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return FlipRows(pixels, fb.w, fb.h)
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (int, int) {
	return fb.w, fb.h
}

// Resize reallocates the attachments when the size changes.
func (fb *Framebuffer) Resize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if width != fb.w || height != fb.h {
		fb.w, fb.h = width, height
		fb.allocate()
	}
}

// FlipRows turns bottom-up RGBA rows, as GL reads them, into a top-down
// image.
func FlipRows(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := range h {
		src := pixels[(h-1-y)*stride:][:stride]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}

// Destroy releases the GL objects. It is safe to call twice.
func (fb *Framebuffer) Destroy() {
	if fb.id != 0 {
		gl.DeleteFramebuffers(1, &fb.id)
		fb.id = 0
	}
	if fb.color != 0 {
		gl.DeleteTextures(1, &fb.color)
		fb.color = 0
	}
	if fb.depth != 0 {
		gl.DeleteRenderbuffers(1, &fb.depth)
		fb.depth = 0
	}
}
