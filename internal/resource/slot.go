package resource

// Role controls which phase may read a slot: Dependency slots are read
// during Compile, Execute slots during Execute.
type Role int

const (
	RoleDependency Role = iota
	RoleExecute
)

// Mutability governs conflict rules in the task dependency graph.
type Mutability int

const (
	ReadOnly Mutability = iota
	WriteOnly
	ReadWrite
)

// Scope distinguishes a slot whose resource is private to one node
// instance from one shared at graph level.
type Scope int

const (
	NodeLevel Scope = iota
	GraphLevel
)

// Nullability marks whether a required resource must be bound for the
// graph to validate.
type Nullability int

const (
	Required Nullability = iota
	Optional
)

// ArrayMode controls connection arity for a slot.
type ArrayMode int

const (
	Single ArrayMode = iota
	Fixed
	Variadic
	Accumulation
)

// Descriptor is the compile-time-declared metadata for one slot plus its
// runtime schema description, used for validation before any payload is
// produced.
type Descriptor struct {
	Index       int
	Name        string
	Tag         TypeTag
	Nullable    Nullability
	Role        Role
	Mutability  Mutability
	Scope       Scope
	ArrayMode   ArrayMode
	FixedCount  int // only meaningful when ArrayMode == Fixed

	Image  *ImageDesc
	Buffer *BufferDesc
	Handle *HandleDesc
}

// Ref is a compile-time typed reference to a resource arena slot,
// generalizing the teacher's ResultRef[T] sigil-interface pattern from a
// graph-compile placeholder to a typed node slot accessor.
type Ref[T any] interface {
	AnyRef
	refSigil(T)
}

// AnyRef is the type-erased counterpart every Ref[T] also satisfies, used
// by the executor and graph machinery which do not need the static type.
type AnyRef interface {
	ResourceID() ID
}

type ref[T any] struct{ id ID }

func (r ref[T]) ResourceID() ID  { return r.id }
func (r ref[T]) refSigil(T)      {}

// NewRef wraps id as a compile-time typed reference to a slot holding a
// Go value of type T.
func NewRef[T any](id ID) Ref[T] { return ref[T]{id: id} }
