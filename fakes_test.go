package framebuffer

import (
	"testing"

	"github.com/gogpu/framebuffer/desc"
	"github.com/gogpu/framebuffer/features"
	"github.com/gogpu/framebuffer/format"
	"github.com/gogpu/framebuffer/rect"
)

var testSerials desc.SerialFactory

// fakeTexture is a test double for hal.Texture.
type fakeTexture struct {
	name      string
	destroyed bool
}

// Destroy implements hal.Resource.
func (t *fakeTexture) Destroy() { t.destroyed = true }

// NativeHandle implements hal.NativeHandle.
func (t *fakeTexture) NativeHandle() uintptr { return 0 }

// fakeView is a test double for hal.TextureView.
type fakeView struct {
	name      string
	destroyed bool
}

// Destroy implements hal.Resource.
func (v *fakeView) Destroy() { v.destroyed = true }

// NativeHandle implements hal.NativeHandle.
func (v *fakeView) NativeHandle() uintptr { return 0 }

// fakeRT is a RenderTarget with directly settable state.
type fakeRT struct {
	name    string
	width   int
	height  int
	samples int
	format  *format.Format

	img         *fakeTexture
	view        *fakeView
	resolveView *fakeView

	drawSerial    desc.SubresourceSerial
	resolveSerial desc.SubresourceSerial

	hasResolve        bool
	transient         bool
	entirelyTransient bool
	defined           bool

	// staged is a pending full-image clear handed out by FlushStagedUpdates.
	staged        *desc.ClearValue
	stagedAspects desc.Aspect
	flushedDirect int

	colorDraws    int
	dsDraws       int
	lastReadOnly  bool
	invalidations int
	restores      int
	aspectViews   []*fakeView
}

func newFakeRT(name string, w, h int, id format.ID) *fakeRT {
	return &fakeRT{
		name:       name,
		width:      w,
		height:     h,
		samples:    1,
		format:     format.Lookup(id),
		img:        &fakeTexture{name: name},
		view:       &fakeView{name: name},
		drawSerial: testSerials.Generate(0, 0),
	}
}

// withResolve gives the target a multisampled image backed by a resolve
// image.
func (r *fakeRT) withResolve(samples int) *fakeRT {
	r.samples = samples
	r.hasResolve = true
	r.resolveView = &fakeView{name: r.name + "-resolve"}
	r.resolveSerial = testSerials.Generate(0, 0)
	return r
}

func (r *fakeRT) Extents() rect.Extents {
	return rect.Extents{Width: r.width, Height: r.height, Depth: 1}
}
func (r *fakeRT) Samples() int                          { return r.samples }
func (r *fakeRT) Format() *format.Format                { return r.format }
func (r *fakeRT) Image() Image                          { return r.img }
func (r *fakeRT) LevelIndex() uint32                    { return 0 }
func (r *fakeRT) LayerIndex() uint32                    { return 0 }
func (r *fakeRT) DrawSerial() desc.SubresourceSerial    { return r.drawSerial }
func (r *fakeRT) ResolveSerial() desc.SubresourceSerial { return r.resolveSerial }
func (r *fakeRT) HasResolveAttachment() bool            { return r.hasResolve }
func (r *fakeRT) IsImageTransient() bool                { return r.transient }
func (r *fakeRT) IsEntirelyTransient() bool             { return r.entirelyTransient }
func (r *fakeRT) HasDefinedContent() bool               { return r.defined }
func (r *fakeRT) ImageView() (ImageView, error)         { return r.view, nil }
func (r *fakeRT) ResolveImageView() (ImageView, error)  { return r.resolveView, nil }

func (r *fakeRT) AspectView(aspect desc.Aspect) (ImageView, error) {
	v := &fakeView{name: r.name + "-" + aspect.String()}
	r.aspectViews = append(r.aspectViews, v)
	return v, nil
}

func (r *fakeRT) FlushStagedUpdates(sink ClearSink, slot int) error {
	if r.staged == nil {
		return nil
	}
	if sink != nil {
		sink.Store(slot, r.stagedAspects, *r.staged)
	} else {
		r.flushedDirect++
		r.defined = true
	}
	r.staged = nil
	return nil
}

func (r *fakeRT) InvalidateEntireContent() {
	r.invalidations++
	r.defined = false
}

func (r *fakeRT) RestoreEntireContent() {
	r.restores++
	r.defined = true
}

func (r *fakeRT) OnColorDraw() {
	r.colorDraws++
	r.defined = true
}

func (r *fakeRT) OnDepthStencilDraw(readOnly bool) {
	r.dsDraws++
	r.lastReadOnly = readOnly
	if !readOnly {
		r.defined = true
	}
}

// fakeObject is a native render pass or framebuffer.
type fakeObject struct {
	kind      string
	id        int
	destroyed bool
}

func (o *fakeObject) Destroy() { o.destroyed = true }

// fakeDevice records native object creation.
type fakeDevice struct {
	renderPasses []desc.RenderPassDesc
	framebuffers []*FramebufferInfo
	next         int
}

func (d *fakeDevice) CreateRenderPass(rp desc.RenderPassDesc) (RenderPass, error) {
	d.renderPasses = append(d.renderPasses, rp)
	d.next++
	return &fakeObject{kind: "render-pass", id: d.next}, nil
}

func (d *fakeDevice) CreateFramebuffer(info *FramebufferInfo) (NativeFramebuffer, error) {
	d.framebuffers = append(d.framebuffers, info)
	d.next++
	return &fakeObject{kind: "framebuffer", id: d.next}, nil
}

type clearCall struct {
	atts []ClearAttachment
	area rect.Rect
}

// fakeRecorder keeps one open render pass and logs every command.
type fakeRecorder struct {
	open   *RenderPassState
	begins []*RenderPassState
	ended  []*RenderPassState

	clears   []clearCall
	blits    []BlitImageCommand
	resolves []ResolveImageCommand
	reads    int
	writes   int
	retired  []Releasable
}

func (r *fakeRecorder) BeginRenderPass(b *RenderPassBegin) (*RenderPassState, error) {
	r.open = NewRenderPassState(b)
	r.begins = append(r.begins, r.open)
	return r.open, nil
}

func (r *fakeRecorder) EndRenderPass() error {
	if r.open != nil {
		r.ended = append(r.ended, r.open)
		r.open = nil
	}
	return nil
}

func (r *fakeRecorder) StartedRenderPass() *RenderPassState { return r.open }

func (r *fakeRecorder) StartNextSubpass() error {
	if r.open != nil {
		r.open.NextSubpass()
	}
	return nil
}

func (r *fakeRecorder) ClearAttachments(atts []ClearAttachment, area rect.Rect) error {
	r.clears = append(r.clears, clearCall{atts: append([]ClearAttachment(nil), atts...), area: area})
	return nil
}

func (r *fakeRecorder) BlitImage(cmd *BlitImageCommand) error {
	r.blits = append(r.blits, *cmd)
	return nil
}

func (r *fakeRecorder) ResolveImage(cmd *ResolveImageCommand) error {
	r.resolves = append(r.resolves, *cmd)
	return nil
}

func (r *fakeRecorder) OnImageTransferRead(desc.Aspect, Image)  { r.reads++ }
func (r *fakeRecorder) OnImageTransferWrite(desc.Aspect, Image) { r.writes++ }
func (r *fakeRecorder) Retire(obj Releasable)                   { r.retired = append(r.retired, obj) }

// fakeUtils logs shader utility calls.
type fakeUtils struct {
	clears          []ClearFramebufferParams
	colorBlits      []BlitResolveParams
	dsBlits         []BlitResolveParams
	stencilNoExport []BlitResolveParams
	unresolves      []UnresolveParams

	onUnresolve func()
}

func (u *fakeUtils) ClearFramebuffer(_ *RenderPassState, p *ClearFramebufferParams) error {
	u.clears = append(u.clears, *p)
	return nil
}

func (u *fakeUtils) ColorBlitResolve(_ *RenderPassState, p *BlitResolveParams) error {
	u.colorBlits = append(u.colorBlits, *p)
	return nil
}

func (u *fakeUtils) DepthStencilBlitResolve(_ *RenderPassState, p *BlitResolveParams) error {
	u.dsBlits = append(u.dsBlits, *p)
	return nil
}

func (u *fakeUtils) StencilBlitResolveNoShaderExport(p *BlitResolveParams) error {
	u.stencilNoExport = append(u.stencilNoExport, *p)
	return nil
}

func (u *fakeUtils) Unresolve(_ *RenderPassState, p *UnresolveParams) error {
	if u.onUnresolve != nil {
		u.onUnresolve()
	}
	u.unresolves = append(u.unresolves, *p)
	return nil
}

// fakeDefaultFB hands out a fixed swapchain framebuffer.
type fakeDefaultFB struct {
	obj   *fakeObject
	calls int
}

func (d *fakeDefaultFB) CurrentFramebuffer(RenderPass) (NativeFramebuffer, error) {
	d.calls++
	return d.obj, nil
}

// testEnv bundles a framebuffer with its fakes.
type testEnv struct {
	fb    *Framebuffer
	dev   *fakeDevice
	rec   *fakeRecorder
	utils *fakeUtils
}

func newTestEnv(t *testing.T, feats *features.Features, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{dev: &fakeDevice{}, rec: &fakeRecorder{}, utils: &fakeUtils{}}
	env.fb = env.newFramebuffer(t, feats, opts...)
	return env
}

// newFramebuffer creates another framebuffer sharing the env's fakes.
func (e *testEnv) newFramebuffer(t *testing.T, feats *features.Features, opts ...Option) *Framebuffer {
	t.Helper()
	fb, err := New(e.dev, e.rec, e.utils, feats, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return fb
}

// syncTargets binds colors (slot order) and ds to fb with every color
// enabled for drawing.
func syncTargets(t *testing.T, fb *Framebuffer, ds *fakeRT, colors ...*fakeRT) *State {
	t.Helper()
	st := &State{}
	for i, rt := range colors {
		if rt == nil {
			continue
		}
		st.Colors[i] = rt
		st.DrawBuffers |= 1 << i
	}
	if ds != nil {
		st.DepthStencil = ds
		st.DepthImage = ds.img
		st.StencilImage = ds.img
	}
	if err := fb.SyncState(BindingDraw, st, DirtyAll, CommandDraw); err != nil {
		t.Fatalf("SyncState() error = %v", err)
	}
	return st
}

func blitFeatures(ids ...format.ID) *features.Features {
	f := features.Default()
	f.Formats = make(map[string]features.FormatCaps)
	for _, id := range ids {
		f.Formats[id.String()] = features.FormatCaps{BlitSrc: true, BlitDst: true}
	}
	return f
}
