// Package glbackend implements the render backend on OpenGL 4.1.
// Every call must be made from the thread that owns the GL context.
package glbackend

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/engine/shader"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

const vertexShader = `#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aUV;
layout (location = 2) in vec4 aColor;
layout (location = 3) in float aLight;

uniform mat4 uViewProj;

out vec2 vUV;
out vec4 vColor;

void main() {
	gl_Position = uViewProj * vec4(aPos, 1.0);
	vUV = aUV;
	vColor = vec4(aColor.rgb * aLight, aColor.a);
}
`

const fragmentShader = `#version 410 core
in vec2 vUV;
in vec4 vColor;

uniform sampler2D uTexture;

out vec4 FragColor;

void main() {
	vec4 c = texture(uTexture, vUV) * vColor;
	if (c.a < 0.01) {
		discard;
	}
	FragColor = c;
}
`

var (
	_ render.Backend    = (*Backend)(nil)
	_ render.DrawTarget = (*Backend)(nil)
)

// Texture is a GL texture object.
type Texture struct {
	id            uint32
	width, height int
}

// ID implements render.Texture.
func (t *Texture) ID() uint32 { return t.id }

// Size implements render.Texture.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Backend implements render.Backend and render.DrawTarget.
type Backend struct {
	program  *shader.Program
	vao      uint32
	vbo      uint32
	white    *Texture
	textures map[uint32]*Texture
	readFBO  uint32
	scratch  []float32
	viewProj mgl32.Mat4
	log      *zap.Logger
}

// New initialises OpenGL and creates the backend.
// Must be called after the OpenGL context is created.
func New() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	b := &Backend{
		textures: make(map[uint32]*Texture),
		viewProj: mgl32.Ident4(),
		log:      logger.Named("gl"),
	}
	b.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	b.program, err = shader.New(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	b.createBuffers()
	gl.GenFramebuffers(1, &b.readFBO)

	white := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []byte{255, 255, 255, 255})
	tex, err := b.CreateTexture(white)
	if err != nil {
		return nil, fmt.Errorf("failed to create white texture: %w", err)
	}
	b.white = tex.(*Texture)
	return b, nil
}

func (b *Backend) createBuffers() {
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)

	stride := int32(floatsPerVertex * 4)
	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, 0},
		{2, 3 * 4},
		{4, 5 * 4},
		{1, 9 * 4},
	}
	for i, a := range attribs {
		gl.VertexAttribPointerWithOffset(uint32(i), a.size, gl.FLOAT, false, stride, a.offset)
		gl.EnableVertexAttribArray(uint32(i))
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

// Close releases all GL resources owned by the backend.
func (b *Backend) Close() {
	b.log.Info("closing backend", zap.Int("textures", len(b.textures)))
	for id := range b.textures {
		gl.DeleteTextures(1, &id)
	}
	clear(b.textures)
	if b.readFBO != 0 {
		gl.DeleteFramebuffers(1, &b.readFBO)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	if b.program != nil {
		b.program.Delete()
	}
}

// Begin clears the current target and sets the view-projection matrix used
// by subsequent draws.
func (b *Backend) Begin(viewProj mgl32.Mat4) {
	b.viewProj = viewProj
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Resize sets the viewport.
func (b *Backend) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	b.log.Debug("viewport resized", zap.Int("width", width), zap.Int("height", height))
}

// CreateTexture uploads img as a new RGBA texture.
func (b *Backend) CreateTexture(img *image.NRGBA) (render.Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, render.ErrEmptyTexture
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	pix := img.Pix
	if img.Stride != w*4 || img.Bounds().Min != (image.Point{}) {
		tight := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			off := img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y+y)
			copy(tight.Pix[y*tight.Stride:], img.Pix[off:off+w*4])
		}
		pix = tight.Pix
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))

	// Pixel art: nearest filtering, clamped so atlas neighbours do not bleed.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	t := &Texture{id: id, width: w, height: h}
	b.textures[id] = t
	return t, nil
}

// DeleteTexture releases tex. Unknown textures are ignored.
func (b *Backend) DeleteTexture(tex render.Texture) {
	t, err := b.lookup(tex)
	if err != nil {
		return
	}
	delete(b.textures, t.id)
	gl.DeleteTextures(1, &t.id)
}

// BlitTexture copies src into dst at (x, y) on the GPU.
func (b *Backend) BlitTexture(dst, src render.Texture, x, y int) error {
	d, err := b.lookup(dst)
	if err != nil {
		return err
	}
	s, err := b.lookup(src)
	if err != nil {
		return err
	}
	r := image.Rect(x, y, x+s.width, y+s.height)
	if !r.In(image.Rect(0, 0, d.width, d.height)) {
		return fmt.Errorf("%w: %v into %dx%d", render.ErrOutOfBounds, r, d.width, d.height)
	}

	var prev int32
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, b.readFBO)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, s.id, 0)

	gl.BindTexture(gl.TEXTURE_2D, d.id)
	gl.CopyTexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), 0, 0, int32(s.width), int32(s.height))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, 0, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(prev))
	return nil
}

// ReadTexture downloads the texture's pixels. GL reads are synchronous, so
// the result is ready by the time the channel is returned.
func (b *Backend) ReadTexture(tex render.Texture) <-chan render.ReadResult {
	ch := make(chan render.ReadResult, 1)
	defer close(ch)

	t, err := b.lookup(tex)
	if err != nil {
		ch <- render.ReadResult{Err: err}
		return ch
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.width, t.height))
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	ch <- render.ReadResult{Image: img}
	return ch
}

// Draw implements render.DrawTarget.
func (b *Backend) Draw(tex render.Texture, quads []render.Quad) {
	if len(quads) == 0 {
		return
	}
	t, err := b.lookup(tex)
	if err != nil {
		b.log.Warn("draw with unknown texture", zap.Error(err))
		return
	}
	b.scratch = appendQuads(b.scratch[:0], quads)
	b.submit(t, gl.TRIANGLES)
}

// DrawLines draws line segments given as endpoint pairs.
func (b *Backend) DrawLines(points []mgl32.Vec3, color math.Color) {
	if len(points) < 2 {
		return
	}
	b.scratch = appendLines(b.scratch[:0], points, color)
	b.submit(b.white, gl.LINES)
}

func (b *Backend) submit(t *Texture, mode uint32) {
	b.program.Use()
	b.program.SetMat4("uViewProj", b.viewProj)
	b.program.SetInt("uTexture", 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.id)

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(b.scratch)*4, gl.Ptr(b.scratch), gl.STREAM_DRAW)
	gl.DrawArrays(mode, 0, int32(len(b.scratch)/floatsPerVertex))

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func (b *Backend) lookup(tex render.Texture) (*Texture, error) {
	if tex == nil {
		return nil, render.ErrUnknownTexture
	}
	t, ok := b.textures[tex.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %d", render.ErrUnknownTexture, tex.ID())
	}
	return t, nil
}
