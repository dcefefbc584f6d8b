package draw

import (
	_ "embed"
)

//go:embed shaders/depth-merge.wgsl
var depthMergeShaderCode string

//go:embed shaders/copy.wgsl
var copyShaderCode string

//go:embed shaders/outline.wgsl
var outlineShaderCode string

//go:embed shaders/ssao.wgsl
var ssaoShaderCode string

//go:embed shaders/compose.wgsl
var composeShaderCode string

//go:embed shaders/fxaa.wgsl
var fxaaShaderCode string

//go:embed shaders/wboit-resolve.wgsl
var wboitResolveShaderCode string
