package match

// SequenceRatio measures the similarity of two strings as
// 2*M/T, where M is the total length of the longest matching blocks and
// T the combined length of both strings. 1.0 means identical.
func SequenceRatio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ar, br)) / float64(total)
}

type matchRegion struct {
	aLo, aHi, bLo, bHi int
}

func matchingRunes(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	stack := []matchRegion{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		reg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, size := longestMatch(a, reg, b2j)
		if size == 0 {
			continue
		}
		matched += size
		stack = append(stack,
			matchRegion{reg.aLo, i, reg.bLo, j},
			matchRegion{i + size, reg.aHi, j + size, reg.bHi},
		)
	}
	return matched
}

func longestMatch(a []rune, reg matchRegion, b2j map[rune][]int) (bestI, bestJ, bestSize int) {
	bestI, bestJ = reg.aLo, reg.bLo
	lengths := map[int]int{}
	for i := reg.aLo; i < reg.aHi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < reg.bLo {
				continue
			}
			if j >= reg.bHi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return bestI, bestJ, bestSize
}
