// Package shader compiles GLSL programs and caches their uniforms.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Error is a failed compile or link step with the driver's info log.
type Error struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s shader: %s", e.Stage, e.Log)
}

// Program is a linked shader program with cached uniform locations.
type Program struct {
	ID       uint32
	uniforms map[string]int32
}

// New compiles and links a program from vertex and fragment sources.
func New(vertexSrc, fragmentSrc string) (*Program, error) {
	vs, err := compile(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vs)
	fs, err := compile(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)

	var ok int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		var n int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
		buf := make([]byte, n+1)
		gl.GetProgramInfoLog(id, n, nil, &buf[0])
		gl.DeleteProgram(id)
		return nil, &Error{Stage: "link", Log: trimLog(buf)}
	}
	return &Program{ID: id, uniforms: make(map[string]int32)}, nil
}

func compile(src string, kind uint32, stage string) (uint32, error) {
	id := gl.CreateShader(kind)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(id, 1, csrc, nil)
	free()
	gl.CompileShader(id)

	var ok int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &ok)
	if ok == gl.FALSE {
		var n int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &n)
		buf := make([]byte, n+1)
		gl.GetShaderInfoLog(id, n, nil, &buf[0])
		gl.DeleteShader(id)
		return 0, &Error{Stage: stage, Log: trimLog(buf)}
	}
	return id, nil
}

// trimLog strips the terminating NULs and trailing newline drivers append.
func trimLog(buf []byte) string {
	return strings.TrimRight(string(buf), "\x00\r\n ")
}

// Use makes the program current.
func (p *Program) Use() {
	gl.UseProgram(p.ID)
}

// Uniform returns the location of name, or -1 if the program does not use
// it. Lookups are cached, misses included.
func (p *Program) Uniform(name string) int32 {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = gl.GetUniformLocation(p.ID, gl.Str(name+"\x00"))
		p.uniforms[name] = loc
	}
	return loc
}

// SetMat4 sets a mat4 uniform.
func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.Uniform(name), 1, false, &m[0])
}

// SetInt sets an int or sampler uniform.
func (p *Program) SetInt(name string, v int32) {
	gl.Uniform1i(p.Uniform(name), v)
}

// Delete releases the program.
func (p *Program) Delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}
