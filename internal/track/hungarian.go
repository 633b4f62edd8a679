package track

import "math"

// hungarianAssign solves the rectangular minimum-cost assignment problem
// between tracks (rows) and detections (columns) using the Kuhn–Munkres
// algorithm in its Jonker–Volgenant potentials form, O(n³). A greedy
// nearest-IOU matcher can split a track when two detections compete for
// it; the global solver cannot.
//
// Cost entries at or above forbiddenCost are treated as unmatchable: the
// solver may route an augmenting path through them while balancing the
// padded matrix, but any such pairing is stripped from the result. Excess
// rows or columns of a rectangular matrix simply stay unmatched.
//
// The result is assignments[row] = column, or -1 when the row is
// unmatched. Identical input always produces identical output.

// forbiddenCost marks a track/detection pair the solver must not keep.
const forbiddenCost = 1e18

func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = -1
		}
		return out
	}

	// Pad to a square matrix; padded cells are forbidden so real rows and
	// columns never prefer them over a viable pairing.
	dim := n
	if m > dim {
		dim = m
	}
	c := make([][]float64, dim)
	for i := range c {
		c[i] = make([]float64, dim)
		for j := range c[i] {
			if i < n && j < m {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = forbiddenCost
			}
		}
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed internally; index 0 is the virtual column.
	u := make([]float64, dim+1)   // row potentials
	v := make([]float64, dim+1)   // column potentials
	match := make([]int, dim+1)   // match[j] = row assigned to column j
	way := make([]int, dim+1)     // previous column along the augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		match[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := match[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if match[j0] == 0 {
				break
			}
		}

		// Augment back along the path.
		for j0 != 0 {
			match[j0] = match[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if match[j] > 0 && match[j] <= dim {
			rowAssign[match[j]-1] = j - 1
		}
	}

	// Trim padding and strip forbidden pairings.
	out := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= forbiddenCost {
			out[i] = -1
		} else {
			out[i] = col
		}
	}
	return out
}
