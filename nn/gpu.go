package nn

import (
	"time"
	"unsafe"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/pkg/errors"
)

// GPUContext holds the WebGPU device used for the optional accelerated
// activation path. The CPU implementations remain the reference semantics;
// GPU results are float32-staged and should be compared with tolerance.
type GPUContext struct {
	device     *wgpu.Device
	queue      *wgpu.Queue
	workgroupX uint32
	release    func()
}

// InitGPU acquires an adapter and device. Callers must Release the context.
func InitGPU() (*GPUContext, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errors.New("webgpu: CreateInstance returned nil")
	}

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		inst.Release()
		return nil, errors.New("webgpu: RequestAdapter failed")
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{})
	if err != nil || device == nil {
		adapter.Release()
		inst.Release()
		return nil, errors.New("webgpu: RequestDevice failed")
	}

	return &GPUContext{
		device:     device,
		queue:      device.GetQueue(),
		workgroupX: 64,
		release: func() {
			device.Release()
			adapter.Release()
			inst.Release()
		},
	}, nil
}

// Release frees the device, adapter and instance.
func (g *GPUContext) Release() {
	if g.release != nil {
		g.release()
		g.release = nil
	}
}

// activationWGSL returns the WGSL body of one activation function.
func activationWGSL(a ActivationFunction) string {
	switch a {
	case ActivationThreshold:
		return `
fn activate(v: f32) -> f32 {
    if (v >= 0.0) { return 1.0; }
    return 0.0;
}`
	case ActivationSymmetricThreshold:
		return `
fn activate(v: f32) -> f32 {
    if (v >= 0.0) { return 1.0; }
    return -1.0;
}`
	case ActivationLogistic:
		return `
fn activate(v: f32) -> f32 {
    return 1.0 / (1.0 + exp(-v));
}`
	case ActivationHyperbolicTangent:
		return `
fn activate(v: f32) -> f32 {
    let e2x = exp(2.0 * v);
    return (e2x - 1.0) / (e2x + 1.0);
}`
	case ActivationLinear:
		return `
fn activate(v: f32) -> f32 {
    return v;
}`
	case ActivationRectifiedLinear:
		return `
fn activate(v: f32) -> f32 {
    return max(0.0, v);
}`
	case ActivationExponentialLinear:
		return `
fn activate(v: f32) -> f32 {
    if (v > 0.0) { return v; }
    return exp(v) - 1.0;
}`
	case ActivationScaledExponentialLinear:
		return `
fn activate(v: f32) -> f32 {
    if (v > 0.0) { return 1.0507009 * v; }
    return 1.0507009 * 1.6732632 * (exp(v) - 1.0);
}`
	case ActivationSoftPlus:
		return `
fn activate(v: f32) -> f32 {
    return log(1.0 + exp(v));
}`
	case ActivationSoftSign:
		return `
fn activate(v: f32) -> f32 {
    return v / (1.0 + abs(v));
}`
	case ActivationHardSigmoid:
		return `
fn activate(v: f32) -> f32 {
    return clamp(0.2 * v + 0.5, 0.0, 1.0);
}`
	default:
		return `
fn activate(v: f32) -> f32 {
    return v;
}`
	}
}

func activationShader(wgx uint32, a ActivationFunction, n int) string {
	return `
@group(0) @binding(0) var<storage, read>        src : array<f32>;
@group(0) @binding(1) var<storage, read_write>  dst : array<f32>;

const N: u32 = ` + uintString(uint32(n)) + `u;
` + activationWGSL(a) + `

@compute @workgroup_size(` + uintString(wgx) + `, 1, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= N) { return; }
    dst[i] = activate(src[i]);
}
`
}

func uintString(v uint32) string {
	digits := [10]byte{}
	pos := len(digits)
	if v == 0 {
		return "0"
	}
	for v > 0 {
		pos--
		digits[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(digits[pos:])
}

func (g *GPUContext) pollDevice(maxIter int) {
	for i := 0; i < maxIter; i++ {
		if g.device.Poll(true, nil) {
			break
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// Activate applies the activation elementwise on the GPU. Values are staged
// through float32 buffers.
func (g *GPUContext) Activate(values []float64, activation ActivationFunction) ([]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}

	n := len(values)
	staged := make([]float32, n)
	for i, v := range values {
		staged[i] = float32(v)
	}
	byteSize := uint64(n * 4)

	module, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "nn_activation_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: activationShader(g.workgroupX, activation, n)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreateShaderModule")
	}
	defer module.Release()

	bgl, err := g.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "nn_activation_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreateBindGroupLayout")
	}
	defer bgl.Release()

	layout, err := g.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "nn_activation_pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreatePipelineLayout")
	}

	pipeline, err := g.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "nn_activation_pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	layout.Release()
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreateComputePipeline")
	}
	defer pipeline.Release()

	src, err := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "nn_activation_src",
		Size:  byteSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: create src buffer")
	}
	defer src.Release()

	dst, err := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "nn_activation_dst",
		Size:  byteSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: create dst buffer")
	}
	defer dst.Release()

	readback, err := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "nn_activation_rb",
		Size:  byteSize,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: create readback buffer")
	}
	defer readback.Release()

	bindGroup, err := g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "nn_activation_bg",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: src, Offset: 0, Size: src.GetSize()},
			{Binding: 1, Buffer: dst, Offset: 0, Size: dst.GetSize()},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreateBindGroup")
	}
	defer bindGroup.Release()

	g.queue.WriteBuffer(src, 0, unsafe.Slice((*byte)(unsafe.Pointer(&staged[0])), int(byteSize)))
	g.pollDevice(100)

	gx := (uint32(n) + g.workgroupX - 1) / g.workgroupX
	if gx == 0 {
		gx = 1
	}

	encoder, err := g.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "nn_activation_enc"})
	if err != nil {
		return nil, errors.Wrap(err, "webgpu: CreateCommandEncoder")
	}
	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "nn_activation_pass"})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(gx, 1, 1)
	pass.End()
	encoder.CopyBufferToBuffer(dst, 0, readback, 0, byteSize)

	commands, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return nil, errors.Wrap(err, "webgpu: encoder finish")
	}
	encoder.Release()
	g.queue.Submit(commands)
	commands.Release()
	g.pollDevice(1000)

	done := false
	readback.MapAsync(wgpu.MapModeRead, 0, byteSize, func(wgpu.BufferMapAsyncStatus) { done = true })
	for i := 0; i < 1000 && !done; i++ {
		g.device.Poll(true, nil)
		time.Sleep(100 * time.Microsecond)
	}
	if !done {
		return nil, errors.New("webgpu: timeout mapping readback buffer")
	}

	view := readback.GetMappedRange(0, uint(byteSize))
	out := make([]float64, n)
	mapped := unsafe.Slice((*float32)(unsafe.Pointer(&view[0])), n)
	for i, v := range mapped {
		out[i] = float64(v)
	}
	readback.Unmap()

	return out, nil
}
