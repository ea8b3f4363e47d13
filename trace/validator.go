package trace

import "fmt"

// Validate enforces the cross-block invariants spec.md §4.3 requires: unique block
// names, resolvable BlockCall targets, well-formed ranges, and (the resolved open
// question of spec.md §9) no call cycles. It is grounded on the teacher's
// SymbolTable.Define/Lookup pattern (parser/symbols.go), repurposed from ARM labels
// to trace block names, plus a three-colour depth-first walk over the call graph —
// the same treatment the teacher gives circular .include chains (ErrorCircularInclude).
func Validate(blocks []*NamedBlock) (*TraceFile, error) {
	tf := &TraceFile{Blocks: make(map[string]*NamedBlock, len(blocks))}

	for _, nb := range blocks {
		if existing, dup := tf.Blocks[nb.Name]; dup {
			return nil, NewError(nb.P, ErrDuplicateBlock,
				fmt.Sprintf("block %q redefined (first defined at %s)", nb.Name, existing.P))
		}
		tf.Blocks[nb.Name] = nb
		tf.Order = append(tf.Order, nb.Name)
	}

	for _, nb := range blocks {
		if err := validateBlock(tf, nb.Body); err != nil {
			return nil, err
		}
	}

	if err := checkCallCycles(tf); err != nil {
		return nil, err
	}

	return tf, nil
}

// validateBlock walks one block's ops, checking range well-formedness and that
// every BlockCall target resolves in the trace file.
func validateBlock(tf *TraceFile, body Block) error {
	for _, op := range body {
		switch o := op.(type) {
		case *Range:
			if err := validateRange(o); err != nil {
				return err
			}
		case *BlockCall:
			if _, ok := tf.Blocks[o.Target]; !ok {
				return NewError(o.P, ErrUnknownCall, fmt.Sprintf("call to undefined block %q", o.Target))
			}
		case *Loop:
			if err := validateBlock(tf, o.Body); err != nil {
				return err
			}
		case *Switch:
			for _, c := range o.Cases {
				if err := validateBlock(tf, c.Body); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateRange(r *Range) error {
	if r.Start >= r.End {
		return NewError(r.P, ErrMalformedRange, fmt.Sprintf("range start 0x%x must be less than end 0x%x", r.Start, r.End))
	}
	if r.InstrLenBits == 0 || r.InstrLenBits%8 != 0 {
		return NewError(r.P, ErrMalformedRange, fmt.Sprintf("instruction length %d bits must be a positive multiple of 8", r.InstrLenBits))
	}
	instrBytes := r.InstrLenBits / 8
	if (r.End-r.Start)%instrBytes != 0 {
		return NewError(r.P, ErrMalformedRange,
			fmt.Sprintf("range span %d is not divisible by instruction size %d bytes", r.End-r.Start, instrBytes))
	}
	return nil
}

// callColor is the three-colour marker used by checkCallCycles.
type callColor int

const (
	white callColor = iota // unvisited
	grey                   // on the current DFS stack
	black                  // fully explored, no cycle through it
)

// checkCallCycles rejects any block whose BlockCall graph (including itself) is
// cyclic. A self-recursive block is therefore always a semantic error rather than
// the original implementation's infinite loop (spec.md §9's resolved open question).
func checkCallCycles(tf *TraceFile) error {
	color := make(map[string]callColor, len(tf.Blocks))
	for _, name := range tf.Order {
		if color[name] == white {
			if err := walkCallGraph(tf, name, color); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkCallGraph(tf *TraceFile, name string, color map[string]callColor) error {
	color[name] = grey
	nb := tf.Blocks[name]
	if err := walkCalls(tf, nb.Body, color); err != nil {
		return err
	}
	color[name] = black
	return nil
}

func walkCalls(tf *TraceFile, body Block, color map[string]callColor) error {
	for _, op := range body {
		switch o := op.(type) {
		case *BlockCall:
			switch color[o.Target] {
			case grey:
				return NewError(o.P, ErrCallCycle, fmt.Sprintf("call cycle detected: %q calls itself (directly or indirectly)", o.Target))
			case white:
				if err := walkCallGraph(tf, o.Target, color); err != nil {
					return err
				}
			}
		case *Loop:
			if err := walkCalls(tf, o.Body, color); err != nil {
				return err
			}
		case *Switch:
			for _, c := range o.Cases {
				if err := walkCalls(tf, c.Body, color); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ParseFile parses and validates a trace file in one step — the convenience entry
// point most callers (the CLI, the HTTP API) want.
func ParseFile(source, filename string) (*TraceFile, error) {
	p, err := NewParser(source, filename)
	if err != nil {
		return nil, err
	}
	blocks, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return Validate(blocks)
}
