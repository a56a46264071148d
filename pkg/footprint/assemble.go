package footprint

// AssembleRings joins node id sequences into rings by matching endpoints.
// Sequences may be joined head to tail in either direction; each sequence
// is used once. closed holds the rings whose first and last ids match,
// open holds the chains that could not be closed. Input order decides
// which chain starts a ring, so the result is deterministic.
func AssembleRings(seqs [][]int64) (closed, open [][]int64) {
	used := make([]bool, len(seqs))

	for i, seq := range seqs {
		if used[i] || len(seq) == 0 {
			continue
		}
		used[i] = true
		chain := append([]int64(nil), seq...)

		for !isClosed(chain) {
			extended := false
			for j, next := range seqs {
				if used[j] || len(next) < 2 {
					continue
				}
				if joined, ok := join(chain, next); ok {
					chain = joined
					used[j] = true
					extended = true
					break
				}
			}
			if !extended {
				break
			}
		}

		if isClosed(chain) {
			closed = append(closed, chain)
		} else {
			open = append(open, chain)
		}
	}
	return closed, open
}

func isClosed(chain []int64) bool {
	return len(chain) >= 2 && chain[0] == chain[len(chain)-1]
}

// join attaches next to either end of chain, reversing it when needed
func join(chain, next []int64) ([]int64, bool) {
	head, tail := chain[0], chain[len(chain)-1]
	first, last := next[0], next[len(next)-1]

	switch {
	case first == tail:
		return append(chain, next[1:]...), true
	case last == tail:
		return append(chain, reversed(next)[1:]...), true
	case last == head:
		return append(append([]int64(nil), next...), chain[1:]...), true
	case first == head:
		return append(reversed(next), chain[1:]...), true
	}
	return nil, false
}

func reversed(s []int64) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
