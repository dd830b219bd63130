// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// Tag identifies the kind of a constant pool entry, per the JVM-standard
// set of constant pool tags.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagInvokeDynamic      Tag = 18
)

// Entry is a tagged-variant constant pool entry. Only the fields
// relevant to Tag are populated; this mirrors the JVM spec's cp_info
// union rather than modelling each tag as its own Go type, since every
// consumer (the class file writer, the StackMapTable remapper) already
// dispatches on Tag.
type Entry struct {
	Tag Tag

	Utf8Bytes []byte // TagUtf8

	Int32 int32 // TagInteger
	Int64 int64 // TagLong
	Flt32 float32
	Flt64 float64

	NameIndex   uint16 // TagClass, TagString, TagNameAndType (name half)
	DescIndex   uint16 // TagNameAndType (descriptor half)
	ClassIndex  uint16 // TagFieldref/Methodref/InterfaceMethodref
	NatIndex    uint16 // TagFieldref/Methodref/InterfaceMethodref -> NameAndType
	RefKind     uint8  // TagMethodHandle
	RefIndex    uint16 // TagMethodHandle
	BootIndex   uint16 // TagInvokeDynamic -> bootstrap_methods[]
	placeholder bool   // second index of a Long/Double pair; inert
}

// Pool is an ordered, indexable constant pool with deduplication for
// the entry kinds the code emitter produces most: Utf8, Class and
// NameAndType. Index 0 is unused, matching the JVM constant_pool_count
// convention (spec.md §3).
type Pool struct {
	entries []Entry // entries[0] is the unused slot

	utf8Index     map[string]uint16
	classIndex    map[string]uint16
	natIndex      map[[2]uint16]uint16
	stringIndex   map[string]uint16
	fieldrefIdx   map[[2]uint16]uint16
	methodrefIdx  map[[2]uint16]uint16
	ifMethodrefIx map[[2]uint16]uint16
}

// NewPool creates an empty constant pool with its unused index-0 slot
// already reserved.
func NewPool() *Pool {
	return &Pool{
		entries:       []Entry{{}}, // index 0, unused
		utf8Index:     map[string]uint16{},
		classIndex:    map[string]uint16{},
		natIndex:      map[[2]uint16]uint16{},
		stringIndex:   map[string]uint16{},
		fieldrefIdx:   map[[2]uint16]uint16{},
		methodrefIdx:  map[[2]uint16]uint16{},
		ifMethodrefIx: map[[2]uint16]uint16{},
	}
}

// Count returns the JVM constant_pool_count: one plus the high-water
// index, including the inert placeholder slots reserved by Long/Double.
func (p *Pool) Count() int { return len(p.entries) }

// Entries returns the backing slice, including the unused index 0 and
// any Long/Double placeholders, for serialisation.
func (p *Pool) Entries() []Entry { return p.entries }

func (p *Pool) add(e Entry) uint16 {
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, e)
	return idx
}

// AddUtf8 adds (or reuses) a MUTF-8 constant. Deduplication is by
// MUTF-8 byte equality, keyed on the pre-encoding Go string since
// EncodeMUTF8 is a pure function of it.
func (p *Pool) AddUtf8(s string) uint16 {
	if idx, ok := p.utf8Index[s]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagUtf8, Utf8Bytes: EncodeMUTF8(s)})
	p.utf8Index[s] = idx
	logger.Printf("utf8[%d] = %q", idx, s)
	return idx
}

// AddInteger adds an Integer constant. Not deduplicated: duplicate
// integer literals are rare enough in generated code that the extra
// bookkeeping isn't worth it, matching the teacher's leb128 writer,
// which never deduplicates numeric literals either.
func (p *Pool) AddInteger(v int32) uint16 {
	return p.add(Entry{Tag: TagInteger, Int32: v})
}

// AddFloat adds a Float constant.
func (p *Pool) AddFloat(v float32) uint16 {
	return p.add(Entry{Tag: TagFloat, Flt32: v})
}

// AddLong adds a Long constant, reserving the mandatory inert second
// index (spec.md §3, §8).
func (p *Pool) AddLong(v int64) uint16 {
	idx := p.add(Entry{Tag: TagLong, Int64: v})
	p.add(Entry{Tag: TagLong, placeholder: true})
	return idx
}

// AddDouble adds a Double constant, reserving the inert second index.
func (p *Pool) AddDouble(v float64) uint16 {
	idx := p.add(Entry{Tag: TagDouble, Flt64: v})
	p.add(Entry{Tag: TagDouble, placeholder: true})
	return idx
}

// AddString adds a String constant referencing a deduplicated Utf8
// entry. Deduplicated by the underlying Go string value.
func (p *Pool) AddString(s string) uint16 {
	if idx, ok := p.stringIndex[s]; ok {
		return idx
	}
	nameIdx := p.AddUtf8(s)
	idx := p.add(Entry{Tag: TagString, NameIndex: nameIdx})
	p.stringIndex[s] = idx
	return idx
}

// AddClass adds a Class constant naming an internal-form class name
// (e.g. "java/lang/Object"), deduplicated by the underlying Utf8 index.
func (p *Pool) AddClass(internalName string) uint16 {
	nameIdx := p.AddUtf8(internalName)
	if idx, ok := p.classIndex[internalName]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagClass, NameIndex: nameIdx})
	p.classIndex[internalName] = idx
	return idx
}

// AddNameAndType adds a NameAndType constant, deduplicated by the pair
// of Utf8 indices it resolves to.
func (p *Pool) AddNameAndType(name, descriptor string) uint16 {
	nameIdx := p.AddUtf8(name)
	descIdx := p.AddUtf8(descriptor)
	key := [2]uint16{nameIdx, descIdx}
	if idx, ok := p.natIndex[key]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagNameAndType, NameIndex: nameIdx, DescIndex: descIdx})
	p.natIndex[key] = idx
	return idx
}

// AddFieldref adds a Fieldref constant, deduplicated by (class index,
// NameAndType index).
func (p *Pool) AddFieldref(internalClass, name, descriptor string) uint16 {
	classIdx := p.AddClass(internalClass)
	natIdx := p.AddNameAndType(name, descriptor)
	key := [2]uint16{classIdx, natIdx}
	if idx, ok := p.fieldrefIdx[key]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagFieldref, ClassIndex: classIdx, NatIndex: natIdx})
	p.fieldrefIdx[key] = idx
	return idx
}

// AddMethodref adds a Methodref constant, deduplicated by (class
// index, NameAndType index).
func (p *Pool) AddMethodref(internalClass, name, descriptor string) uint16 {
	classIdx := p.AddClass(internalClass)
	natIdx := p.AddNameAndType(name, descriptor)
	key := [2]uint16{classIdx, natIdx}
	if idx, ok := p.methodrefIdx[key]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagMethodref, ClassIndex: classIdx, NatIndex: natIdx})
	p.methodrefIdx[key] = idx
	return idx
}

// AddInterfaceMethodref adds an InterfaceMethodref constant,
// deduplicated by (class index, NameAndType index).
func (p *Pool) AddInterfaceMethodref(internalClass, name, descriptor string) uint16 {
	classIdx := p.AddClass(internalClass)
	natIdx := p.AddNameAndType(name, descriptor)
	key := [2]uint16{classIdx, natIdx}
	if idx, ok := p.ifMethodrefIx[key]; ok {
		return idx
	}
	idx := p.add(Entry{Tag: TagInterfaceMethodref, ClassIndex: classIdx, NatIndex: natIdx})
	p.ifMethodrefIx[key] = idx
	return idx
}

// ClassNameOf returns the internal-form class name behind a Class
// constant, used by the code builder to derive descriptors for
// checkcast/new/anewarray without keeping a second lookup table.
func (p *Pool) ClassNameOf(classIndex uint16) (string, error) {
	if int(classIndex) >= len(p.entries) {
		return "", fmt.Errorf("classfile: class index %d out of range", classIndex)
	}
	e := p.entries[classIndex]
	if e.Tag != TagClass {
		return "", fmt.Errorf("classfile: index %d is not a Class entry (tag %d)", classIndex, e.Tag)
	}
	utf := p.entries[e.NameIndex]
	return string(DecodeMUTF8(utf.Utf8Bytes)), nil
}
