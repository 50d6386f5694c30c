package wgpuhal

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framebuffer/internal/shaders"
)

// pipeline returns the cached pipeline for key, creating it on a miss.
func (u *Utils) pipeline(key pipelineKey) (hal.RenderPipeline, error) {
	return u.pipelines.GetOrCreate(key, func() (hal.RenderPipeline, error) {
		return u.createPipeline(key)
	})
}

func (u *Utils) createPipeline(key pipelineKey) (hal.RenderPipeline, error) {
	module, err := u.module(key.kind)
	if err != nil {
		return nil, err
	}
	layout, err := u.layout(key.kind)
	if err != nil {
		return nil, err
	}

	targets := make([]gputypes.ColorTargetState, key.colorCount)
	for i := range targets {
		targets[i] = gputypes.ColorTargetState{
			Format:    key.colors[i],
			WriteMask: key.masks[i],
		}
	}

	pd := &hal.RenderPipelineDescriptor{
		Label:  key.kind.String() + "_pipeline",
		Layout: layout.pipe,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shaders.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shaders.FragmentEntry,
			Targets:    targets,
		},
		Multisample: gputypes.MultisampleState{
			Count: key.samples,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
	}
	if key.depthFormat != gputypes.TextureFormatUndefined {
		pass := hal.StencilOperationKeep
		var writeMask uint32
		if key.stencil {
			pass = hal.StencilOperationReplace
			writeMask = uint32(key.stencilMask)
		}
		face := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      pass,
		}
		pd.DepthStencil = &hal.DepthStencilState{
			Format:            key.depthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront:      face,
			StencilBack:       face,
			StencilReadMask:   0xFF,
			StencilWriteMask:  writeMask,
		}
	}

	p, err := u.dev.device.CreateRenderPipeline(pd)
	if err != nil {
		return nil, fmt.Errorf("create %v pipeline: %w", key.kind, err)
	}
	slogger().Debug("wgpuhal: utility pipeline created",
		"kind", key.kind.String(), "colors", key.colorCount,
		"samples", key.samples, "stencil", key.stencil)
	return p, nil
}

// module returns the shader module of kind, translating it once.
func (u *Utils) module(kind shaders.Kind) (hal.ShaderModule, error) {
	if m := u.modules[kind]; m != nil {
		return m, nil
	}
	spirv, err := shaders.SPIRV(kind)
	if err != nil {
		return nil, err
	}
	m, err := u.dev.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: kind.String() + "_shader",
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %v shader module: %w", kind, err)
	}
	u.modules[kind] = m
	return m, nil
}

// layoutEntries returns the bind group layout of kind:
//
//	clear:      0 uniform
//	color_blit: 0 uniform, 1 source texture, 2 sampler
//	unresolve:  0 resolve texture
func layoutEntries(kind shaders.Kind) []gputypes.BindGroupLayoutEntry {
	uniform := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	texture := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	switch kind {
	case shaders.Clear:
		return []gputypes.BindGroupLayoutEntry{uniform}
	case shaders.ColorBlit:
		return []gputypes.BindGroupLayoutEntry{
			uniform,
			texture(1),
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		}
	case shaders.Unresolve:
		return []gputypes.BindGroupLayoutEntry{texture(0)}
	}
	return nil
}

func (u *Utils) layout(kind shaders.Kind) (*bindLayout, error) {
	if l := u.layouts[kind]; l != nil {
		return l, nil
	}
	d := u.dev.device
	group, err := d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   kind.String() + "_bind_layout",
		Entries: layoutEntries(kind),
	})
	if err != nil {
		return nil, fmt.Errorf("create %v bind group layout: %w", kind, err)
	}
	pipe, err := d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            kind.String() + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{group},
	})
	if err != nil {
		d.DestroyBindGroupLayout(group)
		return nil, fmt.Errorf("create %v pipeline layout: %w", kind, err)
	}
	l := &bindLayout{group: group, pipe: pipe}
	u.layouts[kind] = l
	return l, nil
}

func (u *Utils) sampler(linear bool) (hal.Sampler, error) {
	i, filter, name := 0, gputypes.FilterModeNearest, "nearest"
	if linear {
		i, filter, name = 1, gputypes.FilterModeLinear, "linear"
	}
	if s := u.samplers[i]; s != nil {
		return s, nil
	}
	s, err := u.dev.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "blit_sampler_" + name,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	u.samplers[i] = s
	return s, nil
}

// bindGroup creates the bind group of one draw. A non-empty uniform is
// uploaded to binding 0. The group and its buffer are retired through the
// recorder.
func (u *Utils) bindGroup(kind shaders.Kind, uniform []byte, extra []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	layout, err := u.layout(kind)
	if err != nil {
		return nil, err
	}
	d := u.dev.device

	entries := make([]gputypes.BindGroupEntry, 0, len(extra)+1)
	var buf hal.Buffer
	if len(uniform) > 0 {
		buf, err = d.CreateBuffer(&hal.BufferDescriptor{
			Label: kind.String() + "_uniform",
			Size:  uint64(len(uniform)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("create %v uniform buffer: %w", kind, err)
		}
		u.dev.queue.WriteBuffer(buf, 0, uniform)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   uint64(len(uniform)),
			},
		})
	}
	entries = append(entries, extra...)

	bg, err := d.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   kind.String() + "_bind_group",
		Layout:  layout.group,
		Entries: entries,
	})
	if err != nil {
		if buf != nil {
			d.DestroyBuffer(buf)
		}
		return nil, fmt.Errorf("create %v bind group: %w", kind, err)
	}
	u.rec.Retire(releaser(func() {
		d.DestroyBindGroup(bg)
		if buf != nil {
			d.DestroyBuffer(buf)
		}
	}))
	return bg, nil
}
