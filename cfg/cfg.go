// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cfg builds a post-hoc control-flow graph over a finished
// method's Code array, for the validation pass of spec.md §4.6: every
// instruction is classified as a block start, a branch target, and/or
// an exception-handler entry, with its successors (fall-through and
// taken for a branch; every target for tableswitch/lookupswitch). This
// package never drives emission; it only checks
// output the Code Builder already produced.
//
// The decoder covers exactly the opcode subset jvmgen/opcode's Emitter
// can produce (spec.md §1's Non-goals exclude a general class-file
// disassembler); jsr/ret/invokedynamic are absent here because they
// are both unused by the emitter and, for jsr/ret, disallowed in class
// files of version 51 and above.
package cfg

import (
	"fmt"

	"jvmgen/classfile"
	"jvmgen/opcode"
)

// Instr is one decoded instruction: its starting PC and byte length
// (opcode plus operands, including any switch padding).
type Instr struct {
	PC     int
	Opcode byte
	Len    int
}

// Node is the per-instruction classification and successor list of
// spec.md §4.6.
type Node struct {
	PC             int
	IsBlockStart   bool
	IsBranchTarget bool
	IsHandlerEntry bool
	Terminal       bool // no fall-through successor
	Successors     []int
}

// Graph is the decoded instruction stream plus its per-instruction
// classification, keyed by PC.
type Graph struct {
	Instrs []Instr
	Nodes  map[int]*Node
}

// Analyze decodes code and builds its control-flow graph, cross-checked
// against exceptions for handler-entry classification.
func Analyze(code []byte, exceptions []classfile.ExceptionEntry) (*Graph, error) {
	instrs, err := decode(code)
	if err != nil {
		return nil, err
	}

	g := &Graph{Instrs: instrs, Nodes: make(map[int]*Node, len(instrs))}
	for _, in := range instrs {
		g.Nodes[in.PC] = &Node{PC: in.PC}
	}
	if len(instrs) > 0 {
		g.Nodes[instrs[0].PC].IsBlockStart = true
	}

	for i, in := range instrs {
		node := g.Nodes[in.PC]
		targets, terminal, err := successors(code, in)
		if err != nil {
			return nil, err
		}
		node.Terminal = terminal
		for _, target := range targets {
			tn, ok := g.Nodes[target]
			if !ok {
				return nil, fmt.Errorf("cfg: branch at pc %d targets %d, not an instruction boundary", in.PC, target)
			}
			tn.IsBranchTarget = true
			tn.IsBlockStart = true
			node.Successors = append(node.Successors, target)
		}
		if !terminal && i+1 < len(instrs) {
			node.Successors = append(node.Successors, instrs[i+1].PC)
		}
	}

	for _, exc := range exceptions {
		hn, ok := g.Nodes[int(exc.HandlerPC)]
		if !ok {
			return nil, fmt.Errorf("cfg: exception handler_pc %d is not an instruction boundary", exc.HandlerPC)
		}
		hn.IsHandlerEntry = true
		hn.IsBlockStart = true
	}

	return g, nil
}

// decode walks code into a flat instruction list, computing each
// instruction's byte length (the opcode's fixed form, or the variable
// tableswitch/lookupswitch/wide forms).
func decode(code []byte) ([]Instr, error) {
	var out []Instr
	pc := 0
	for pc < len(code) {
		op := code[pc]
		length, err := instrLen(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, Instr{PC: pc, Opcode: op, Len: length})
		pc += length
	}
	return out, nil
}

// fixedOperandLen is the operand byte count (excluding the opcode
// itself) for every opcode whose length never varies.
var fixedOperandLen = map[byte]int{
	opcode.Nop: 0, opcode.AconstNull: 0,
	opcode.IconstM1: 0, opcode.Iconst0: 0, opcode.Iconst1: 0, opcode.Iconst2: 0,
	opcode.Iconst3: 0, opcode.Iconst4: 0, opcode.Iconst5: 0,
	opcode.Lconst0: 0, opcode.Lconst1: 0,
	opcode.Fconst0: 0, opcode.Fconst1: 0, opcode.Fconst2: 0,
	opcode.Dconst0: 0, opcode.Dconst1: 0,
	opcode.Bipush: 1, opcode.Sipush: 2,
	opcode.Ldc: 1, opcode.LdcW: 2, opcode.Ldc2W: 2,

	opcode.Iload: 1, opcode.Lload: 1, opcode.Fload: 1, opcode.Dload: 1, opcode.Aload: 1,
	opcode.Istore: 1, opcode.Lstore: 1, opcode.Fstore: 1, opcode.Dstore: 1, opcode.Astore: 1,

	opcode.Iaload: 0, opcode.Laload: 0, opcode.Faload: 0, opcode.Daload: 0, opcode.Aaload: 0,
	opcode.Baload: 0, opcode.Caload: 0, opcode.Saload: 0,
	opcode.Iastore: 0, opcode.Lastore: 0, opcode.Fastore: 0, opcode.Dastore: 0, opcode.Aastore: 0,
	opcode.Bastore: 0, opcode.Castore: 0, opcode.Sastore: 0,

	opcode.Pop: 0, opcode.Pop2: 0, opcode.Dup: 0, opcode.DupX1: 0, opcode.DupX2: 0,
	opcode.Dup2: 0, opcode.Dup2X1: 0, opcode.Dup2X2: 0, opcode.Swap: 0,

	opcode.Iadd: 0, opcode.Ladd: 0, opcode.Fadd: 0, opcode.Dadd: 0,
	opcode.Isub: 0, opcode.Lsub: 0, opcode.Fsub: 0, opcode.Dsub: 0,
	opcode.Imul: 0, opcode.Lmul: 0, opcode.Fmul: 0, opcode.Dmul: 0,
	opcode.Idiv: 0, opcode.Ldiv: 0, opcode.Fdiv: 0, opcode.Ddiv: 0,
	opcode.Irem: 0, opcode.Lrem: 0, opcode.Frem: 0, opcode.Drem: 0,
	opcode.Ineg: 0, opcode.Lneg: 0, opcode.Fneg: 0, opcode.Dneg: 0,
	opcode.Ishl: 0, opcode.Lshl: 0, opcode.Ishr: 0, opcode.Lshr: 0,
	opcode.Iushr: 0, opcode.Lushr: 0, opcode.Iand: 0, opcode.Land: 0,
	opcode.Ior: 0, opcode.Lor: 0, opcode.Ixor: 0, opcode.Lxor: 0,

	opcode.Iinc: 2,

	opcode.I2l: 0, opcode.I2f: 0, opcode.I2d: 0,
	opcode.L2i: 0, opcode.L2f: 0, opcode.L2d: 0,
	opcode.F2i: 0, opcode.F2l: 0, opcode.F2d: 0,
	opcode.D2i: 0, opcode.D2l: 0, opcode.D2f: 0,
	opcode.I2b: 0, opcode.I2c: 0, opcode.I2s: 0,

	opcode.Lcmp: 0, opcode.Fcmpl: 0, opcode.Fcmpg: 0, opcode.Dcmpl: 0, opcode.Dcmpg: 0,

	opcode.Ifeq: 2, opcode.Ifne: 2, opcode.Iflt: 2, opcode.Ifge: 2, opcode.Ifgt: 2, opcode.Ifle: 2,
	opcode.IfIcmpeq: 2, opcode.IfIcmpne: 2, opcode.IfIcmplt: 2, opcode.IfIcmpge: 2,
	opcode.IfIcmpgt: 2, opcode.IfIcmple: 2, opcode.IfAcmpeq: 2, opcode.IfAcmpne: 2,
	opcode.Ifnull: 2, opcode.Ifnonnull: 2,

	opcode.Goto: 2, opcode.GotoW: 4,

	opcode.Ireturn: 0, opcode.Lreturn: 0, opcode.Freturn: 0, opcode.Dreturn: 0,
	opcode.Areturn: 0, opcode.Return: 0,

	opcode.Getstatic: 2, opcode.Putstatic: 2, opcode.Getfield: 2, opcode.Putfield: 2,
	opcode.Invokevirtual: 2, opcode.Invokespecial: 2, opcode.Invokestatic: 2,
	opcode.Invokeinterface: 4,

	opcode.New: 2, opcode.Newarray: 1, opcode.Anewarray: 2,
	opcode.Arraylength: 0, opcode.Athrow: 0, opcode.Checkcast: 2, opcode.Instanceof: 2,

	opcode.Monitorenter: 0, opcode.Monitorexit: 0,

	opcode.Multianewarray: 3,
}

func instrLen(code []byte, pc int) (int, error) {
	op := code[pc]
	switch op {
	case opcode.Tableswitch:
		return tableswitchLen(code, pc)
	case opcode.Lookupswitch:
		return lookupswitchLen(code, pc)
	case opcode.Wide:
		return wideLen(code, pc)
	}
	operandLen, ok := fixedOperandLen[op]
	if !ok {
		return 0, fmt.Errorf("cfg: unsupported opcode 0x%02x at pc %d", op, pc)
	}
	return 1 + operandLen, nil
}

func wideLen(code []byte, pc int) (int, error) {
	if pc+1 >= len(code) {
		return 0, fmt.Errorf("cfg: truncated wide instruction at pc %d", pc)
	}
	sub := code[pc+1]
	if sub == opcode.Iinc {
		return 1 + 1 + 4, nil // wide, iinc, u16 index, s16 delta
	}
	return 1 + 1 + 2, nil // wide, <op>, u16 index
}

func padLen(pc int) int { return 3 - (pc % 4) }

func tableswitchLen(code []byte, pc int) (int, error) {
	pad := padLen(pc)
	header := pc + 1 + pad
	if header+12 > len(code) {
		return 0, fmt.Errorf("cfg: truncated tableswitch at pc %d", pc)
	}
	low := be32(code, header+4)
	high := be32(code, header+8)
	n := int(high-low) + 1
	if n < 0 {
		return 0, fmt.Errorf("cfg: tableswitch at pc %d has high < low", pc)
	}
	return 1 + pad + 12 + 4*n, nil
}

func lookupswitchLen(code []byte, pc int) (int, error) {
	pad := padLen(pc)
	header := pc + 1 + pad
	if header+8 > len(code) {
		return 0, fmt.Errorf("cfg: truncated lookupswitch at pc %d", pc)
	}
	npairs := int(be32(code, header+4))
	if npairs < 0 {
		return 0, fmt.Errorf("cfg: lookupswitch at pc %d has negative npairs", pc)
	}
	return 1 + pad + 8 + 8*npairs, nil
}

func be32(code []byte, i int) int32 {
	return int32(uint32(code[i])<<24 | uint32(code[i+1])<<16 | uint32(code[i+2])<<8 | uint32(code[i+3]))
}

func be16signed(code []byte, i int) int32 {
	return int32(int16(uint16(code[i])<<8 | uint16(code[i+1])))
}

// successors returns in.'s branch targets (as absolute PCs) and
// whether in. has no fall-through successor.
func successors(code []byte, in Instr) (targets []int, terminal bool, err error) {
	switch in.Opcode {
	case opcode.Ifeq, opcode.Ifne, opcode.Iflt, opcode.Ifge, opcode.Ifgt, opcode.Ifle,
		opcode.IfIcmpeq, opcode.IfIcmpne, opcode.IfIcmplt, opcode.IfIcmpge, opcode.IfIcmpgt, opcode.IfIcmple,
		opcode.IfAcmpeq, opcode.IfAcmpne, opcode.Ifnull, opcode.Ifnonnull:
		offset := be16signed(code, in.PC+1)
		return []int{in.PC + int(offset)}, false, nil

	case opcode.Goto:
		offset := be16signed(code, in.PC+1)
		return []int{in.PC + int(offset)}, true, nil

	case opcode.GotoW:
		offset := be32(code, in.PC+1)
		return []int{in.PC + int(offset)}, true, nil

	case opcode.Tableswitch:
		return tableswitchTargets(code, in.PC), true, nil

	case opcode.Lookupswitch:
		return lookupswitchTargets(code, in.PC), true, nil

	case opcode.Ireturn, opcode.Lreturn, opcode.Freturn, opcode.Dreturn, opcode.Areturn,
		opcode.Return, opcode.Athrow:
		return nil, true, nil

	default:
		return nil, false, nil
	}
}

func tableswitchTargets(code []byte, pc int) []int {
	pad := padLen(pc)
	header := pc + 1 + pad
	defaultOffset := be32(code, header)
	low := be32(code, header+4)
	high := be32(code, header+8)
	n := int(high-low) + 1
	targets := make([]int, 0, n+1)
	targets = append(targets, pc+int(defaultOffset))
	for i := 0; i < n; i++ {
		off := be32(code, header+12+4*i)
		targets = append(targets, pc+int(off))
	}
	return targets
}

func lookupswitchTargets(code []byte, pc int) []int {
	pad := padLen(pc)
	header := pc + 1 + pad
	defaultOffset := be32(code, header)
	npairs := int(be32(code, header+4))
	targets := make([]int, 0, npairs+1)
	targets = append(targets, pc+int(defaultOffset))
	for i := 0; i < npairs; i++ {
		off := be32(code, header+8+8*i+4)
		targets = append(targets, pc+int(off))
	}
	return targets
}
