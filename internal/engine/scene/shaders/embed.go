// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// HeightfieldVertexShader transforms mesh and axis vertices and forwards
// their colors and view-space positions.
//
//go:embed heightfield.vert
var HeightfieldVertexShader string

// HeightfieldFragmentShader applies the optional point light.
//
//go:embed heightfield.frag
var HeightfieldFragmentShader string
