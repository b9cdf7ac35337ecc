package strip

import "sort"

// Plan collects the byte-range edits for one file. At most one edit is
// kept per range; deletions win over replacements on the same range.
type Plan struct {
	edits map[uint64]Edit
}

func newPlan() *Plan {
	return &Plan{edits: make(map[uint64]Edit)}
}

func (p *Plan) add(e Edit) {
	key := uint64(e.StartByte)<<32 | uint64(e.EndByte)
	prev, ok := p.edits[key]
	if ok {
		if prev.Kind == EditReplaceExpression && e.Kind != EditReplaceExpression {
			p.edits[key] = e
		}
		return
	}
	p.edits[key] = e
}

// Len returns the number of planned edits.
func (p *Plan) Len() int {
	return len(p.edits)
}

// Edits returns the plan ordered by start byte, widest range first
// among edits sharing a start. The applier relies on this order to
// let containing deletions subsume nested edits.
func (p *Plan) Edits() []Edit {
	out := make([]Edit, 0, len(p.edits))
	for _, e := range p.edits {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartByte != out[j].StartByte {
			return out[i].StartByte < out[j].StartByte
		}
		return out[i].EndByte > out[j].EndByte
	})
	return out
}

// widenStatement expands a statement span to swallow the whole line
// when the statement sits alone on it: leading indentation and the
// trailing newline go with the statement. When other code shares the
// line only the separating blanks on the statement's side are taken.
func widenStatement(source []byte, start, end uint32) (uint32, uint32) {
	b := start
	for b > 0 && (source[b-1] == ' ' || source[b-1] == '\t') {
		b--
	}
	atLineStart := b == 0 || source[b-1] == '\n'
	if !atLineStart {
		return b, end
	}

	f := end
	n := uint32(len(source))
	for f < n && (source[f] == ' ' || source[f] == '\t') {
		f++
	}
	if f < n && source[f] == '\r' && f+1 < n && source[f+1] == '\n' {
		return b, f + 2
	}
	if f < n && source[f] == '\n' {
		return b, f + 1
	}
	return b, f
}
