package desc

// LoadOp is the load operation of an attachment at render pass start.
type LoadOp uint8

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

func (op LoadOp) String() string {
	switch op {
	case LoadOpLoad:
		return "load"
	case LoadOpClear:
		return "clear"
	case LoadOpDontCare:
		return "dont-care"
	}
	return "unknown"
}

// StoreOp is the store operation of an attachment at render pass end.
type StoreOp uint8

// Store operations.
const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

func (op StoreOp) String() string {
	if op == StoreOpDontCare {
		return "dont-care"
	}
	return "store"
}

// AttachmentOps holds the ops of one packed attachment. Stencil ops apply
// to depth/stencil attachments only.
type AttachmentOps struct {
	Load         LoadOp
	Store        StoreOp
	StencilLoad  LoadOp
	StencilStore StoreOp
}

// AttachmentOpsArray holds the ops of every packed attachment.
type AttachmentOpsArray [MaxAttachments]AttachmentOps

// SetOps sets the load and store op of attachment i.
func (a *AttachmentOpsArray) SetOps(i PackedAttachmentIndex, load LoadOp, store StoreOp) {
	a[i].Load = load
	a[i].Store = store
}

// SetStencilOps sets the stencil load and store op of attachment i.
func (a *AttachmentOpsArray) SetStencilOps(i PackedAttachmentIndex, load LoadOp, store StoreOp) {
	a[i].StencilLoad = load
	a[i].StencilStore = store
}

// SetClearOp switches the load op of attachment i to clear.
func (a *AttachmentOpsArray) SetClearOp(i PackedAttachmentIndex) { a[i].Load = LoadOpClear }

// SetClearStencilOp switches the stencil load op of attachment i to clear.
func (a *AttachmentOpsArray) SetClearStencilOp(i PackedAttachmentIndex) {
	a[i].StencilLoad = LoadOpClear
}
