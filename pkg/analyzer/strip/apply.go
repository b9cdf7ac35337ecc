package strip

import (
	"bytes"
	"sort"
)

// Apply rewrites source according to the edits in a single forward
// pass. An edit whose range was already consumed by an earlier
// deletion targets a detached node and is a no-op; a partial overlap
// extends the deletion. Bytes outside edit ranges are copied verbatim.
func Apply(source []byte, edits []Edit) []byte {
	if len(edits) == 0 {
		return source
	}

	ordered := make([]Edit, len(edits))
	copy(ordered, edits)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].StartByte != ordered[j].StartByte {
			return ordered[i].StartByte < ordered[j].StartByte
		}
		return ordered[i].EndByte > ordered[j].EndByte
	})

	var out bytes.Buffer
	out.Grow(len(source))
	cursor := uint32(0)
	n := uint32(len(source))

	for _, e := range ordered {
		start, end := e.StartByte, e.EndByte
		if start > n || end > n || start > end {
			continue
		}
		if end <= cursor {
			// Entirely inside an applied range: already detached.
			continue
		}
		if start < cursor {
			// Partial overlap with an applied deletion.
			if e.Kind != EditReplaceExpression {
				cursor = end
			}
			continue
		}
		out.Write(source[cursor:start])
		if e.Kind == EditReplaceExpression {
			out.WriteString(e.Text)
		}
		cursor = end
	}

	if cursor < n {
		out.Write(source[cursor:])
	}
	return out.Bytes()
}
