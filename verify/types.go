// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify implements the JVM verification-type lattice and the
// Frame model used to track operand-stack and local-variable types
// during bytecode emission (spec.md §3, §4.3).
package verify

// Tag enumerates the nine verification-type kinds of spec.md §3.
type Tag uint8

const (
	Top Tag = iota
	Integer
	Float
	Long
	Double
	Null
	UninitializedThis
	Object
	Uninitialized
)

func (t Tag) String() string {
	switch t {
	case Top:
		return "Top"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Long:
		return "Long"
	case Double:
		return "Double"
	case Null:
		return "Null"
	case UninitializedThis:
		return "UninitializedThis"
	case Object:
		return "Object"
	case Uninitialized:
		return "Uninitialized"
	default:
		return "?"
	}
}

// Type is a verification type: a tag plus, for Object, a field
// descriptor, and for Uninitialized, the bytecode offset of the `new`
// instruction that produced it (spec.md §3).
type Type struct {
	Tag        Tag
	Descriptor string // Object only, e.g. "Ljava/lang/String;" or "[I"
	NewSitePC  uint16 // Uninitialized only
}

func TTop() Type        { return Type{Tag: Top} }
func TInteger() Type    { return Type{Tag: Integer} }
func TFloat() Type      { return Type{Tag: Float} }
func TLong() Type       { return Type{Tag: Long} }
func TDouble() Type     { return Type{Tag: Double} }
func TNull() Type       { return Type{Tag: Null} }
func TUninitThis() Type { return Type{Tag: UninitializedThis} }

// TObject returns an Object verification type for the given field
// descriptor (already in `L...;` or array-descriptor form).
func TObject(descriptor string) Type { return Type{Tag: Object, Descriptor: descriptor} }

// TUninitialized returns an Uninitialized verification type recording
// the `new` site's PC.
func TUninitialized(newSitePC uint16) Type {
	return Type{Tag: Uninitialized, NewSitePC: newSitePC}
}

// Slots returns the local/stack slot width of t: 2 for Long/Double,
// 1 otherwise (spec.md §3, §4.3).
func Slots(t Type) int {
	if t.Tag == Long || t.Tag == Double {
		return 2
	}
	return 1
}

// Equal compares tag and, for Object, descriptor, and for
// Uninitialized, the new-site PC (spec.md §4.3).
func Equal(a, b Type) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Object:
		return a.Descriptor == b.Descriptor
	case Uninitialized:
		return a.NewSitePC == b.NewSitePC
	default:
		return true
	}
}

// isArrayDescriptor reports whether d is an array descriptor and
// returns its element descriptor (one dimension stripped).
func isArrayDescriptor(d string) (elem string, ok bool) {
	if len(d) > 0 && d[0] == '[' {
		return d[1:], true
	}
	return "", false
}

func arrayDim(d string) int {
	n := 0
	for n < len(d) && d[n] == '[' {
		n++
	}
	return n
}

func isObjectElement(elemDescriptor string) bool {
	return len(elemDescriptor) > 0 && (elemDescriptor[0] == 'L' || elemDescriptor[0] == '[')
}

// Assignable reports whether value can be used where target is
// expected (spec.md §4.3): Top is assignable to and from anything;
// Null is assignable to any reference target; primitives match only
// themselves except that Integer covers the whole computational-int
// family on stack; array covariance holds for object-element arrays of
// the same dimension; otherwise an exact match (or common supertype,
// which this conservative check treats as "assume java/lang/Object")
// is required.
func Assignable(value, target Type) bool {
	if value.Tag == Top || target.Tag == Top {
		return true
	}
	if value.Tag == Null {
		return target.Tag == Object || target.Tag == Null
	}
	if value.Tag != target.Tag {
		return false
	}
	switch value.Tag {
	case Object:
		if value.Descriptor == target.Descriptor {
			return true
		}
		ve, vok := isArrayDescriptor(value.Descriptor)
		te, tok := isArrayDescriptor(target.Descriptor)
		if vok && tok && isObjectElement(ve) && isObjectElement(te) {
			return arrayDim(value.Descriptor) == arrayDim(target.Descriptor)
		}
		// Without a supertype oracle, treat java/lang/Object as the
		// universal reference target (matches the Object descriptor
		// merge fallback below).
		return target.Descriptor == "Ljava/lang/Object;"
	case Uninitialized:
		return value.NewSitePC == target.NewSitePC
	default:
		return true
	}
}

// Merge computes the lattice join of a and b (spec.md §4.3): returns
// a if equal; Null joined with Object yields that Object; two Objects
// join to a common supertype, which — lacking a supertype oracle —
// this core approximates as java/lang/Object except for the same-kind
// array covariance case explicitly named by the spec; anything else
// incompatible degrades to Top.
func Merge(a, b Type) Type {
	if Equal(a, b) {
		return a
	}
	if a.Tag == Null && b.Tag == Object {
		return b
	}
	if b.Tag == Null && a.Tag == Object {
		return a
	}
	if a.Tag == Object && b.Tag == Object {
		return mergeObjects(a, b)
	}
	return TTop()
}

func mergeObjects(a, b Type) Type {
	ae, aok := isArrayDescriptor(a.Descriptor)
	be, bok := isArrayDescriptor(b.Descriptor)
	if aok && bok {
		da, db := arrayDim(a.Descriptor), arrayDim(b.Descriptor)
		if da == db && isObjectElement(ae) && isObjectElement(be) {
			return TObject(dims(da) + "Ljava/lang/Object;")
		}
		return TObject("Ljava/lang/Object;")
	}
	return TObject("Ljava/lang/Object;")
}

func dims(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '['
	}
	return string(b)
}
