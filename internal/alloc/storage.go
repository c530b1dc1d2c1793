package alloc

import "github.com/qcc-project/qcc/internal/ast"

// assignStorage sweeps the use-range timeline chronologically: at each
// variable's begin step it claims a GPR from the function's pool or
// falls back to the stack, and at its end step releases the slot back
// to the pool, grounded on parse_begin_of_use/parse_end_of_use. No
// variable is given an FPR. Struct/union-kind and array variables
// always go to the stack regardless of pool availability, since they
// do not fit in a single register.
func (a *Allocator) assignStorage(fn *ast.Function) {
	gprFree := makeStack(a.gprCount)
	fprFree := makeStack(a.fprCount)

	begins := map[uint32][]*ast.Variable{}
	ends := map[uint32][]*ast.Variable{}
	maxStep := uint32(0)
	for v, r := range a.usesRange {
		begins[r.begin] = append(begins[r.begin], v)
		ends[r.end] = append(ends[r.end], v)
		if r.end > maxStep {
			maxStep = r.end
		}
	}

	for step := uint32(0); step <= maxStep; step++ {
		for _, v := range ends[step] {
			switch v.Source.Kind {
			case ast.SourceGpr:
				gprFree.push(v.Source.Reg)
			case ast.SourceFpr:
				fprFree.push(v.Source.Reg)
			}
		}
		for _, v := range begins[step] {
			assignOne(v, gprFree, fprFree)
		}
	}
}

// assignOne picks v's storage. Float/double values always fall
// through to the stack: internal/emit only ever targets the GPR file
// for arithmetic, so reserving an FPR pool slot for a Kind.Has(Fpr)
// variable would just strand it with no instruction selection able to
// read it back out of an xmm register.
func assignOne(v *ast.Variable, gprFree, fprFree *regStack) {
	k := v.Type.Decay().Kind
	switch {
	case isAggregate(v):
		v.Source = ast.Source{Kind: ast.SourceStack}
	case k.Has(gprKindMask) && !gprFree.empty():
		v.Source = ast.Source{Kind: ast.SourceGpr, Reg: gprFree.pop()}
	default:
		v.Source = ast.Source{Kind: ast.SourceStack}
	}
}

func isAggregate(v *ast.Variable) bool {
	t := v.Type
	return t.Kind.Has(gprRecordMask) || t.Kind.Has(arrayMask)
}

type regStack struct{ slots []int }

func makeStack(n int) *regStack {
	s := &regStack{}
	for i := n - 1; i >= 0; i-- {
		s.slots = append(s.slots, i)
	}
	return s
}

func (s *regStack) empty() bool { return len(s.slots) == 0 }
func (s *regStack) pop() int {
	n := len(s.slots) - 1
	v := s.slots[n]
	s.slots = s.slots[:n]
	return v
}
func (s *regStack) push(v int) { s.slots = append(s.slots, v) }
