package trace

import (
	"fmt"
	"iter"
	"math/rand"
	"sort"
)

// StepLimit bounds the number of instructions a single expansion may emit,
// defending against pathological nesting of loop()/switch (spec.md §5). It is
// deliberately generous — 10^8 — since legitimate synthetic workloads can be
// large; it exists only to fail cleanly rather than run unbounded.
const StepLimit = 100_000_000

// workItem is the closed set of entries the expansion work stack can hold: a
// not-yet-processed Op, or a partially-consumed Range/Loop continuation. Using
// continuations (rather than literally pushing "count" copies of a loop body, or
// materialising a whole range up front) keeps the stack bounded by nesting depth
// instead of by total emitted instructions, while producing byte-identical output
// to the literal stack-seeded-in-reverse algorithm spec.md §4.3 describes.
type workItem interface{ isWorkItem() }

type opItem struct{ op Op }

func (opItem) isWorkItem() {}

type rangeItem struct {
	next      uint64
	step      uint64
	remaining uint64
	lenBits   uint64
}

func (rangeItem) isWorkItem() {}

// loopItem represents one not-yet-run iteration of a loop body, followed by
// however many iterations remain after it.
type loopItem struct {
	remaining uint64 // iterations still to run after this one
	body      Block
}

func (loopItem) isWorkItem() {}

func pushBlockReversed(stack []workItem, body Block) []workItem {
	for i := len(body) - 1; i >= 0; i-- {
		stack = append(stack, opItem{op: body[i]})
	}
	return stack
}

// Expand lazily expands a validated NamedBlock into its deterministic, finite
// instruction sequence. The PRNG driving weighted switch selection is freshly
// seeded with the fixed constant 0 on every call, so two independent expansions
// of the same trace always agree (spec.md §4.3, P5).
//
// The returned sequence yields a non-nil error exactly once, as its final pair,
// if the expansion exceeds StepLimit; callers should stop consuming on the first
// non-nil error.
func Expand(tf *TraceFile, nb *NamedBlock) iter.Seq2[Instruction, error] {
	return func(yield func(Instruction, error) bool) {
		rng := rand.New(rand.NewSource(0))
		stack := pushBlockReversed(nil, nb.Body)
		var emitted uint64

		for len(stack) > 0 {
			item := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch it := item.(type) {
			case rangeItem:
				if it.remaining == 0 {
					continue
				}
				emitted++
				if emitted > StepLimit {
					yield(Instruction{}, fmt.Errorf("expansion exceeded step limit of %d instructions", StepLimit))
					return
				}
				if !yield(Instruction{Address: it.next, LengthBits: it.lenBits}, nil) {
					return
				}
				if it.remaining > 1 {
					stack = append(stack, rangeItem{
						next:      it.next + it.step,
						step:      it.step,
						remaining: it.remaining - 1,
						lenBits:   it.lenBits,
					})
				}

			case loopItem:
				if it.remaining > 0 {
					stack = append(stack, loopItem{remaining: it.remaining - 1, body: it.body})
				}
				stack = pushBlockReversed(stack, it.body)

			case opItem:
				switch o := it.op.(type) {
				case *Range:
					instrBytes := o.InstrLenBits / 8
					count := (o.End - o.Start) / instrBytes
					if count == 0 {
						continue
					}
					stack = append(stack, rangeItem{next: o.Start, step: instrBytes, remaining: count, lenBits: o.InstrLenBits})

				case *BlockCall:
					target, ok := tf.Blocks[o.Target]
					if !ok {
						// Validate() already rejects this; defensive only.
						yield(Instruction{}, fmt.Errorf("call to undefined block %q", o.Target))
						return
					}
					stack = pushBlockReversed(stack, target.Body)

				case *Loop:
					if o.Count == 0 {
						continue
					}
					stack = append(stack, loopItem{remaining: o.Count - 1, body: o.Body})

				case *Switch:
					chosen := weightedSelect(rng, o.Cases)
					stack = pushBlockReversed(stack, o.Cases[chosen].Body)
				}
			}
		}
	}
}

// weightedSelect implements the deterministic weighted sample of spec.md §4.3:
// sort (index, weight) pairs ascending by weight with a stable sort (required
// for P5 to hold across implementations with different default sort algorithms),
// draw r uniformly from [0, T] inclusive, and walk the sorted list picking the
// first index whose running weight sum is >= r. When the total weight is zero,
// r is fixed at 0 so the first sorted case always wins.
func weightedSelect(rng *rand.Rand, cases []SwitchCase) int {
	type pair struct {
		idx    int
		weight uint64
	}
	pairs := make([]pair, len(cases))
	var total uint64
	for i, c := range cases {
		pairs[i] = pair{idx: i, weight: c.Weight}
		total += c.Weight
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].weight < pairs[j].weight })

	var r uint64
	if total > 0 {
		r = uint64(rng.Int63n(int64(total) + 1))
	}

	var s uint64
	for _, p := range pairs {
		s += p.weight
		if s >= r {
			return p.idx
		}
	}
	return pairs[len(pairs)-1].idx
}
