package streamir

import "fmt"

// Attribute is a typed, compile-time constant carried on an operation.
type Attribute interface {
	String() string
	Equal(Attribute) bool
}

// IntAttr is an integer constant, used for scalar splat/fill values and for
// the "has this offset been proven zero" folds.
type IntAttr struct{ Value int64 }

func (a *IntAttr) String() string { return fmt.Sprintf("%d", a.Value) }
func (a *IntAttr) Equal(o Attribute) bool {
	other, ok := o.(*IntAttr)
	return ok && other.Value == a.Value
}

// FloatAttr is a floating point constant.
type FloatAttr struct{ Value float64 }

func (a *FloatAttr) String() string { return fmt.Sprintf("%g", a.Value) }
func (a *FloatAttr) Equal(o Attribute) bool {
	other, ok := o.(*FloatAttr)
	return ok && other.Value == a.Value
}

// StringAttr carries opaque data (e.g. a symbol name for a dispatch target).
type StringAttr struct{ Value string }

func (a *StringAttr) String() string { return a.Value }
func (a *StringAttr) Equal(o Attribute) bool {
	other, ok := o.(*StringAttr)
	return ok && other.Value == a.Value
}

// AffinityAttr names the logical device/queue an op targets.
type AffinityAttr struct{ Name string }

func (a *AffinityAttr) String() string { return a.Name }
func (a *AffinityAttr) Equal(o Attribute) bool {
	other, ok := o.(*AffinityAttr)
	return ok && other.Name == a.Name
}
