// Package resource implements the typed variant Resource and the slot
// descriptor metadata the render graph uses to validate connections and
// enforce phase-correct access, replacing the source's
// std::variant-backed Resource with an explicit Go sum type (Design
// Notes §9).
package resource

import "fmt"

// TypeTag discriminates which concrete payload a Resource carries. The
// tag never changes after first population (data-model invariant a).
type TypeTag int

const (
	TagUndefined TypeTag = iota
	TagOpaqueHandle
	TagBuffer
	TagImage
	TagBytes
	TagScalar
	TagPtr
)

func (t TypeTag) String() string {
	switch t {
	case TagOpaqueHandle:
		return "OpaqueHandle"
	case TagBuffer:
		return "Buffer"
	case TagImage:
		return "Image"
	case TagBytes:
		return "Bytes"
	case TagScalar:
		return "Scalar"
	case TagPtr:
		return "Ptr"
	default:
		return "Undefined"
	}
}

// Lifetime controls whether a Resource is rebuilt every frame or
// survives across frames until explicitly invalidated.
type Lifetime int

const (
	Transient Lifetime = iota
	Persistent
)

// BufferDesc is the schema for a Buffer-tagged resource.
type BufferDesc struct {
	SizeBytes uint64
	Usage     string
}

// ImageDesc is the schema for an Image-tagged resource. Format is left
// as a string (e.g. "R8G8B8A8_UNORM") rather than tied to a specific
// graphics API, per the external-interface boundary in spec §6.
type ImageDesc struct {
	Width, Height, Depth uint32
	Format               string
	Usage                string
}

// HandleDesc is the schema for an OpaqueHandle-tagged resource.
type HandleDesc struct {
	Kind string
}

// ResourceValue is the tagged-union payload. Exactly one field is
// meaningful for a given Tag; accessed through the typed Get/Set helpers
// below, never directly by callers outside this package.
type ResourceValue struct {
	Tag TypeTag

	Handle   uint64
	HandleD  HandleDesc
	BufferD  BufferDesc
	Buffer   []byte
	ImageD   ImageDesc
	Image    []byte
	Bytes    []byte
	Scalar   any
	Ptr      any
}

// Resource is a tracked, typed value owned exclusively by the render
// graph's resource arena (data-model invariant d) and referenced by
// nodes only through a ResourceID, never an address.
type Resource struct {
	ID         ID
	Lifetime   Lifetime
	Generation uint64
	written    bool
	value      ResourceValue
}

// ID is a stable index into the arena; it is never reused within the
// arena's lifetime, so it survives slice growth (Design Notes §9's open
// question on pointer stability).
type ID int

// New creates an empty resource typed by tag, not yet written.
func New(id ID, tag TypeTag, lifetime Lifetime) *Resource {
	return &Resource{ID: id, Lifetime: lifetime, value: ResourceValue{Tag: tag}}
}

// Tag reports the resource's fixed type discriminant.
func (r *Resource) Tag() TypeTag { return r.value.Tag }

// IsWritten reports whether the payload has been produced at least once
// this frame (Transient) or ever (Persistent).
func (r *Resource) IsWritten() bool { return r.written }

// ResetForFrame clears the written flag of a Transient resource so the
// invariant "must be written each frame before read" can be enforced;
// Persistent resources are left untouched.
func (r *Resource) ResetForFrame() {
	if r.Lifetime == Transient {
		r.written = false
	}
}

// set validates the tag and stores v, bumping Generation.
func (r *Resource) set(tag TypeTag, apply func(*ResourceValue)) error {
	if r.value.Tag != TagUndefined && r.value.Tag != tag {
		return fmt.Errorf("resource %d: type tag mismatch: declared %s, set %s", r.ID, r.value.Tag, tag)
	}
	if r.value.Tag == TagUndefined {
		r.value.Tag = tag
	}
	apply(&r.value)
	r.Generation++
	r.written = true
	return nil
}

func (r *Resource) get(tag TypeTag) error {
	if r.value.Tag != tag {
		return fmt.Errorf("resource %d: type tag mismatch: stored %s, requested %s", r.ID, r.value.Tag, tag)
	}
	if !r.written {
		return fmt.Errorf("resource %d: read before first write", r.ID)
	}
	return nil
}

// SetScalar stores a scalar payload of static Go type T.
func SetScalar[T any](r *Resource, v T) error {
	return r.set(TagScalar, func(rv *ResourceValue) { rv.Scalar = v })
}

// GetScalar retrieves a previously-set scalar payload of type T.
func GetScalar[T any](r *Resource) (T, error) {
	var zero T
	if err := r.get(TagScalar); err != nil {
		return zero, err
	}
	v, ok := r.value.Scalar.(T)
	if !ok {
		return zero, fmt.Errorf("resource %d: scalar payload is not of requested Go type", r.ID)
	}
	return v, nil
}

// SetBytes stores a raw byte-buffer payload.
func (r *Resource) SetBytes(b []byte) error {
	return r.set(TagBytes, func(rv *ResourceValue) { rv.Bytes = b })
}

// GetBytes retrieves a raw byte-buffer payload.
func (r *Resource) GetBytes() ([]byte, error) {
	if err := r.get(TagBytes); err != nil {
		return nil, err
	}
	return r.value.Bytes, nil
}

// SetHandle stores an opaque handle payload.
func (r *Resource) SetHandle(handle uint64, desc HandleDesc) error {
	return r.set(TagOpaqueHandle, func(rv *ResourceValue) { rv.Handle = handle; rv.HandleD = desc })
}

// GetHandle retrieves an opaque handle payload.
func (r *Resource) GetHandle() (uint64, HandleDesc, error) {
	if err := r.get(TagOpaqueHandle); err != nil {
		return 0, HandleDesc{}, err
	}
	return r.value.Handle, r.value.HandleD, nil
}

// SetImage stores an image description plus optional raw backing bytes.
func (r *Resource) SetImage(desc ImageDesc, raw []byte) error {
	return r.set(TagImage, func(rv *ResourceValue) { rv.ImageD = desc; rv.Image = raw })
}

// GetImage retrieves the image description and raw bytes, if any.
func (r *Resource) GetImage() (ImageDesc, []byte, error) {
	if err := r.get(TagImage); err != nil {
		return ImageDesc{}, nil, err
	}
	return r.value.ImageD, r.value.Image, nil
}

// SetBuffer stores a buffer description plus optional raw backing bytes.
func (r *Resource) SetBuffer(desc BufferDesc, raw []byte) error {
	return r.set(TagBuffer, func(rv *ResourceValue) { rv.BufferD = desc; rv.Buffer = raw })
}

// GetBuffer retrieves the buffer description and raw bytes, if any.
func (r *Resource) GetBuffer() (BufferDesc, []byte, error) {
	if err := r.get(TagBuffer); err != nil {
		return BufferDesc{}, nil, err
	}
	return r.value.BufferD, r.value.Buffer, nil
}

// SetPtr stores a type-erased pointer-like payload.
func (r *Resource) SetPtr(v any) error {
	return r.set(TagPtr, func(rv *ResourceValue) { rv.Ptr = v })
}

// GetPtr retrieves a type-erased pointer-like payload.
func (r *Resource) GetPtr() (any, error) {
	if err := r.get(TagPtr); err != nil {
		return nil, err
	}
	return r.value.Ptr, nil
}

// ImageDescribesMatch reports whether two non-undefined image formats
// agree, per graph-validation rule 4 (§4.5).
func ImageDescribesMatch(schema, actual ImageDesc) bool {
	if schema.Format == "" || actual.Format == "" {
		return true
	}
	return schema.Format == actual.Format
}
