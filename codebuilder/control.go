// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"sort"

	"jvmgen/opcode"
	"jvmgen/verify"
)

// controlKind tags a controlEntry variant (spec.md §3 "Control entry",
// §9 "Tagged-variant encodings").
type controlKind int

const (
	ctrlIf controlKind = iota
	ctrlLoop
	ctrlSwitch
)

type switchCase struct {
	Value int32
	Label *Label
}

// controlEntry is the tagged variant pushed onto the control stack for
// each open if/loop/switch (spec.md §3).
type controlEntry struct {
	kind controlKind

	// If
	thenLabel, elseLabel, endLabel *Label
	hasElse, inThen, inElse        bool

	// Loop
	start, cond, body, post, end *Label
	continueTarget               *Label
	isDoWhile, hasPost            bool

	// Switch
	dispatch, dflt, swEnd *Label
	cases                 []switchCase
	exprLocal             int
	hasDefault            bool
}

// --- if/else ---------------------------------------------------------

// BeginIf pushes an `if` control entry; negatedOpcode is the IF_* comparison
// already chosen by the caller (the condition's top-of-stack effect
// has already been popped by the time this is called). JumpIf to
// elseLabel is emitted immediately, matching the `if (cond) then else`
// layout: the condition's negation branches past the then-block.
func (b *Builder) BeginIf(negatedOpcode byte) {
	then := b.CreateLabel("if.then")
	els := b.CreateLabel("if.else")
	end := b.CreateLabel("if.end")
	els.JumpTarget = true
	end.JumpTarget = true

	b.JumpIf(negatedOpcode, els, "if")
	b.control = append(b.control, controlEntry{kind: ctrlIf, thenLabel: then, elseLabel: els, endLabel: end, inThen: true})
}

// BeginElse places the else label (jumping to end first to skip it
// when falling out of the then-branch) and marks the entry as now
// inside the else branch.
func (b *Builder) BeginElse() {
	e := b.top()
	if e == nil || e.kind != ctrlIf {
		return
	}
	e.hasElse = true
	e.inThen = false
	e.inElse = true
	b.Jump(e.endLabel)
	b.PlaceLabel(e.elseLabel)
}

// EndIf places the else label (if no BeginElse occurred) and the end
// label, then pops the control entry.
func (b *Builder) EndIf() {
	e := b.popIf()
	if e == nil {
		return
	}
	if !e.hasElse {
		b.PlaceLabel(e.elseLabel)
	}
	b.PlaceLabel(e.endLabel)
}

func (b *Builder) popIf() *controlEntry {
	n := len(b.control)
	if n == 0 || b.control[n-1].kind != ctrlIf {
		return nil
	}
	e := b.control[n-1]
	b.control = b.control[:n-1]
	return &e
}

// --- loops -------------------------------------------------------------

// BeginWhile places the cond label (marked loop-header) at entry.
func (b *Builder) BeginWhile() *Label {
	cond := b.CreateLabel("while.cond")
	body := b.CreateLabel("while.body")
	end := b.CreateLabel("while.end")
	cond.LoopHeader = true
	cond.JumpTarget = true
	end.JumpTarget = true

	b.PlaceLabel(cond)
	b.control = append(b.control, controlEntry{
		kind: ctrlLoop, cond: cond, body: body, end: end, continueTarget: cond,
	})
	return cond
}

// WhileTestFailed emits jump_if_not(end) after the condition has been
// evaluated and its negated branch opcode chosen by the caller, then
// places the body label.
func (b *Builder) WhileTestFailed(negatedOpcode byte) {
	e := b.top()
	if e == nil || e.kind != ctrlLoop {
		return
	}
	b.JumpIf(negatedOpcode, e.end, "loop")
	b.PlaceLabel(e.body)
}

// EndWhile emits the back jump to cond and places end.
func (b *Builder) EndWhile() {
	e := b.popLoop()
	if e == nil {
		return
	}
	b.Jump(e.cond)
	b.PlaceLabel(e.end)
}

// BeginDoWhile places the body label at entry.
func (b *Builder) BeginDoWhile() *Label {
	body := b.CreateLabel("dowhile.body")
	cond := b.CreateLabel("dowhile.cond")
	end := b.CreateLabel("dowhile.end")
	body.JumpTarget = true
	cond.LoopHeader = true
	end.JumpTarget = true

	b.PlaceLabel(body)
	b.control = append(b.control, controlEntry{
		kind: ctrlLoop, body: body, cond: cond, end: end, continueTarget: cond, isDoWhile: true,
	})
	return body
}

// EndDoWhile places cond (after the body), then — once the condition
// is on the stack — emits jump_if(body) and places end.
func (b *Builder) EndDoWhile(condOpcode byte) {
	e := b.popLoop()
	if e == nil {
		return
	}
	b.PlaceLabel(e.cond)
	// caller pushes the condition expression here, between PlaceLabel
	// and the jump below, in the driver's visitor walk.
	b.JumpIf(condOpcode, e.body, "loop")
	b.PlaceLabel(e.end)
}

// BeginFor places cond before the condition expression; continueTarget
// is post.
func (b *Builder) BeginFor() *Label {
	cond := b.CreateLabel("for.cond")
	body := b.CreateLabel("for.body")
	post := b.CreateLabel("for.post")
	end := b.CreateLabel("for.end")
	cond.LoopHeader = true
	cond.JumpTarget = true
	post.JumpTarget = true
	end.JumpTarget = true

	b.PlaceLabel(cond)
	b.control = append(b.control, controlEntry{
		kind: ctrlLoop, cond: cond, body: body, post: post, end: end, continueTarget: post, hasPost: true,
	})
	return cond
}

// ForTestFailed mirrors WhileTestFailed: jump_if_not(end), then place
// body.
func (b *Builder) ForTestFailed(negatedOpcode byte) {
	b.WhileTestFailed(negatedOpcode)
}

// ForBeginPost places the post label, for the driver to emit the
// post-expression into.
func (b *Builder) ForBeginPost() {
	e := b.top()
	if e == nil || e.kind != ctrlLoop {
		return
	}
	b.PlaceLabel(e.post)
}

// EndFor emits the back jump to cond and places end.
func (b *Builder) EndFor() {
	e := b.popLoop()
	if e == nil {
		return
	}
	b.Jump(e.cond)
	b.PlaceLabel(e.end)
}

func (b *Builder) popLoop() *controlEntry {
	n := len(b.control)
	if n == 0 || b.control[n-1].kind != ctrlLoop {
		return nil
	}
	e := b.control[n-1]
	b.control = b.control[:n-1]
	return &e
}

// --- break / continue --------------------------------------------------

// Break locates the innermost loop or switch by a linear scan of the
// control stack and jumps to its end label (spec.md §4.4).
func (b *Builder) Break() {
	for i := len(b.control) - 1; i >= 0; i-- {
		e := &b.control[i]
		switch e.kind {
		case ctrlLoop:
			b.jumpWithContext(e.end, "break")
			return
		case ctrlSwitch:
			b.jumpWithContext(e.swEnd, "break")
			return
		}
	}
}

// Continue locates the innermost loop and jumps to its continue
// target (cond for while/do-while, post for for).
func (b *Builder) Continue() {
	for i := len(b.control) - 1; i >= 0; i-- {
		e := &b.control[i]
		if e.kind == ctrlLoop {
			b.jumpWithContext(e.continueTarget, "continue")
			return
		}
	}
}

func (b *Builder) jumpWithContext(target *Label, ctx string) {
	if !b.alive {
		return
	}
	b.saveOrMergeInto(target, ctx)
	pc, wide := b.Em.Goto(b.CurrentPC(), target.PC)
	if !wide {
		b.pendingJumps = append(b.pendingJumps, PendingJump{PC: pc, Label: target})
	}
	b.alive = false
}

func (b *Builder) top() *controlEntry {
	n := len(b.control)
	if n == 0 {
		return nil
	}
	return &b.control[n-1]
}

// --- switch --------------------------------------------------------

// BeginSwitch opens a switch whose expression has already been
// materialised into local slot exprLocal. It immediately jumps to the
// dispatch label placed at EndSwitch, so the case bodies that follow
// are reached only via the dispatch's jumps, never by falling
// straight through from here (original_source/codebuilder_control.c's
// codebuilder_switch_dispatch emits this goto right after recording
// expr_local, before any case is walked).
func (b *Builder) BeginSwitch(exprLocal int) {
	dispatch := b.CreateLabel("switch.dispatch")
	end := b.CreateLabel("switch.end")
	dispatch.JumpTarget = true
	end.JumpTarget = true
	b.control = append(b.control, controlEntry{
		kind: ctrlSwitch, dispatch: dispatch, swEnd: end, exprLocal: exprLocal,
	})
	b.Jump(dispatch)
}

// Case records a (value, label) pair and places the label here.
func (b *Builder) Case(value int32) *Label {
	e := b.top()
	if e == nil || e.kind != ctrlSwitch {
		return nil
	}
	l := b.CreateLabel("switch.case")
	l.JumpTarget = true
	e.cases = append(e.cases, switchCase{Value: value, Label: l})
	b.PlaceLabel(l)
	return l
}

// Default marks the current point as the default case.
func (b *Builder) Default() *Label {
	e := b.top()
	if e == nil || e.kind != ctrlSwitch {
		return nil
	}
	l := b.CreateLabel("switch.default")
	l.JumpTarget = true
	e.dflt = l
	e.hasDefault = true
	b.PlaceLabel(l)
	return l
}

// EndSwitch jumps to end as a fall-through guard, places the dispatch
// label, reuses end as the default when none was set, chooses the
// javac dispatch strategy, and emits the appropriate instruction(s)
// (spec.md §4.4).
func (b *Builder) EndSwitch() {
	n := len(b.control)
	if n == 0 || b.control[n-1].kind != ctrlSwitch {
		return
	}
	e := b.control[n-1]
	b.control = b.control[:n-1]

	b.Jump(e.swEnd)
	b.PlaceLabel(e.dispatch)

	dflt := e.dflt
	if !e.hasDefault {
		dflt = e.swEnd
	}

	sort.Slice(e.cases, func(i, j int) bool { return e.cases[i].Value < e.cases[j].Value })

	b.emitSwitchDispatch(e.cases, dflt, e.exprLocal)
	b.alive = false
	b.PlaceLabel(e.swEnd)
}

// DispatchStrategy names the chosen switch emission form.
type DispatchStrategy int

const (
	StrategyIfChain DispatchStrategy = iota
	StrategyTable
	StrategyLookup
)

// ChooseSwitchStrategy implements the javac cost model of spec.md
// §4.4: for 0, 1 or 2 cases, always an if/sub chain; otherwise choose
// tableswitch iff table_space + 3*table_time <= lookup_space +
// 3*lookup_time.
func ChooseSwitchStrategy(cases []switchCase) DispatchStrategy {
	n := len(cases)
	if n <= 2 {
		return StrategyIfChain
	}
	low, high := cases[0].Value, cases[n-1].Value
	tableSpace := 4 + (high - low + 1)
	tableTime := int32(3)
	lookupSpace := int32(3 + 2*n)
	lookupTime := int32(n)
	if tableSpace+3*tableTime <= lookupSpace+3*lookupTime {
		return StrategyTable
	}
	return StrategyLookup
}

func (b *Builder) emitSwitchDispatch(cases []switchCase, dflt *Label, exprLocal int) {
	strategy := ChooseSwitchStrategy(cases)
	switch strategy {
	case StrategyIfChain:
		b.emitIfChain(cases, dflt, exprLocal)
	case StrategyTable:
		b.emitTableSwitch(cases, dflt, exprLocal)
	case StrategyLookup:
		b.emitLookupSwitch(cases, dflt, exprLocal)
	}
}

func (b *Builder) emitIfChain(cases []switchCase, dflt *Label, exprLocal int) {
	for _, c := range cases {
		b.Em.LoadLocal(opcode.Iload, exprLocal)
		b.Push(verify.TInteger())
		b.Em.Iconst(c.Value, func() uint16 { return b.CP.AddInteger(c.Value) })
		b.Push(verify.TInteger())
		b.Pop()
		b.Pop()
		b.JumpIf(opcode.IfIcmpeq, c.Label, "switch")
	}
	b.Jump(dflt)
}

func (b *Builder) emitTableSwitch(cases []switchCase, dflt *Label, exprLocal int) {
	low, high := cases[0].Value, cases[len(cases)-1].Value
	n := int(high - low + 1)
	offsets := make([]int32, n)
	byValue := make(map[int32]*Label, len(cases))
	for _, c := range cases {
		byValue[c.Value] = c.Label
	}

	b.Em.LoadLocal(opcode.Iload, exprLocal)
	b.Push(verify.TInteger())
	b.Pop()

	opcodePC := b.CurrentPC()
	for i := 0; i < n; i++ {
		v := low + int32(i)
		if l, ok := byValue[v]; ok {
			offsets[i] = placeholderOrOffset(l, opcodePC)
		} else {
			offsets[i] = placeholderOrOffset(dflt, opcodePC)
		}
	}
	defOff := placeholderOrOffset(dflt, opcodePC)
	b.Em.TableSwitch(low, high, defOff, offsets)
}

func (b *Builder) emitLookupSwitch(cases []switchCase, dflt *Label, exprLocal int) {
	b.Em.LoadLocal(opcode.Iload, exprLocal)
	b.Push(verify.TInteger())
	b.Pop()

	opcodePC := b.CurrentPC()
	keys := make([]int32, len(cases))
	offsets := make([]int32, len(cases))
	for i, c := range cases {
		keys[i] = c.Value
		offsets[i] = placeholderOrOffset(c.Label, opcodePC)
	}
	defOff := placeholderOrOffset(dflt, opcodePC)
	b.Em.LookupSwitch(defOff, keys, offsets)
}

// placeholderOrOffset computes the signed offset for a switch target
// that is, by construction (all case labels are placed by the time
// EndSwitch runs the dispatch emission), already resolved.
func placeholderOrOffset(l *Label, opcodePC int) int32 {
	return int32(l.PC - opcodePC)
}
