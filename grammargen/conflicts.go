package grammargen

import (
	"fmt"
	"slices"
)

// ConflictKind distinguishes shift/reduce from reduce/reduce conflicts.
type ConflictKind string

const (
	ShiftReduce  ConflictKind = "shift/reduce"
	ReduceReduce ConflictKind = "reduce/reduce"
)

// Resolution names the rule that decided a conflict.
type Resolution string

const (
	ByPrecedence    Resolution = "precedence"
	ByAssociativity Resolution = "associativity"
	ByOrder         Resolution = "order"
)

// Conflict records one resolved table conflict. Chosen and Rejected are
// "shift" or "reduce <production>".
type Conflict struct {
	State     int          `json:"state" yaml:"state"`
	Lookahead string       `json:"lookahead" yaml:"lookahead"`
	Kind      ConflictKind `json:"kind" yaml:"kind"`
	Chosen    string       `json:"chosen" yaml:"chosen"`
	Rejected  string       `json:"rejected" yaml:"rejected"`
	Reason    Resolution   `json:"reason" yaml:"reason"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("state %d on %s: %s conflict, chose %s over %s by %s",
		c.State, c.Lookahead, c.Kind, c.Chosen, c.Rejected, c.Reason)
}

type actionKind uint8

const (
	actShift actionKind = iota + 1
	actReduce
	actAccept
)

type action struct {
	kind   actionKind
	target int // shift state
	prod   int // reduce production
}

// buildActions fills the action table of every state, resolving
// conflicts.
//
// Shift/reduce: the higher precedence wins, where a shift on t has the
// highest precedence among items that can consume t next. On a tie a
// left-associative reduction reduces and a right-associative one shifts;
// otherwise the alternative declared first wins. Reduce/reduce: higher
// precedence, then the earlier production. Accepting behaves as a
// reduction of the last production with precedence 0.
func (c *compiler) buildActions() {
	aug := len(c.prods) - 1
	c.actions = make([]map[int]action, len(c.states))
	for si, s := range c.states {
		acts := make(map[int]action)
		reduces := make(map[int][]int)
		for _, ci := range c.closures[si] {
			if _, ok := c.next(ci.item); ok {
				continue
			}
			ci.la.each(func(t int) {
				reduces[t] = append(reduces[t], ci.item.prod)
			})
		}
		for sym, target := range s.trans {
			acts[sym] = action{kind: actShift, target: target}
		}

		las := make([]int, 0, len(reduces))
		for t := range reduces {
			las = append(las, t)
		}
		slices.Sort(las)
		for _, t := range las {
			best := c.resolveReduces(si, t, reduces[t])
			red := action{kind: actReduce, prod: best}
			if best == aug {
				red = action{kind: actAccept, prod: aug}
			}
			if sh, ok := acts[t]; ok {
				acts[t] = c.resolveShift(si, t, sh, red)
				continue
			}
			acts[t] = red
		}
		c.actions[si] = acts
	}
}

func (c *compiler) resolveReduces(state, t int, prods []int) int {
	slices.Sort(prods)
	prods = slices.Compact(prods)
	best := prods[0]
	for _, p := range prods[1:] {
		chosen, rejected, reason := best, p, ByOrder
		if c.prods[p].prec > c.prods[best].prec {
			chosen, rejected, reason = p, best, ByPrecedence
		} else if c.prods[p].prec < c.prods[best].prec {
			reason = ByPrecedence
		}
		c.record(Conflict{
			State:     state,
			Lookahead: c.displayName(t),
			Kind:      ReduceReduce,
			Chosen:    c.reduceLabel(chosen),
			Rejected:  c.reduceLabel(rejected),
			Reason:    reason,
		})
		best = chosen
	}
	return best
}

func (c *compiler) resolveShift(state, t int, sh, red action) action {
	shiftPrec, shiftOrder := c.shiftPriority(state, t)
	rp := c.prods[red.prod]

	var takeShift bool
	var reason Resolution
	switch {
	case rp.prec > shiftPrec:
		reason = ByPrecedence
	case rp.prec < shiftPrec:
		takeShift, reason = true, ByPrecedence
	case rp.assoc == AssocLeft:
		reason = ByAssociativity
	case rp.assoc == AssocRight:
		takeShift, reason = true, ByAssociativity
	default:
		takeShift, reason = shiftOrder < red.prod, ByOrder
	}

	conflict := Conflict{
		State:     state,
		Lookahead: c.displayName(t),
		Kind:      ShiftReduce,
		Reason:    reason,
	}
	if takeShift {
		conflict.Chosen, conflict.Rejected = "shift", c.reduceLabel(red.prod)
	} else {
		conflict.Chosen, conflict.Rejected = c.reduceLabel(red.prod), "shift"
	}
	c.record(conflict)
	if takeShift {
		return sh
	}
	return red
}

// shiftPriority returns the highest precedence and the lowest production
// index among the items of state that can consume t next.
func (c *compiler) shiftPriority(state, t int) (int, int) {
	prec, order, found := 0, len(c.prods), false
	for _, ci := range c.closures[state] {
		y, ok := c.next(ci.item)
		if !ok || !c.first[y].has(t) {
			continue
		}
		p := c.prods[ci.item.prod]
		if !found || p.prec > prec {
			prec = p.prec
		}
		order = min(order, p.index)
		found = true
	}
	return prec, order
}

func (c *compiler) reduceLabel(prod int) string {
	if prod == len(c.prods)-1 {
		return "accept"
	}
	return "reduce " + c.describe(c.prods[prod]).String()
}

func (c *compiler) record(conflict Conflict) {
	c.conflicts = append(c.conflicts, conflict)
	c.logger.Debug("grammargen: conflict resolved",
		"state", conflict.State,
		"lookahead", conflict.Lookahead,
		"kind", string(conflict.Kind),
		"chosen", conflict.Chosen,
		"rejected", conflict.Rejected,
		"reason", string(conflict.Reason))
}
