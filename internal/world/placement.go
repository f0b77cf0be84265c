// Point placement finds free cells for pickups, drop-offs and spawn points
// while keeping a minimum separation between placed points.
package world

import "math/rand"

// PlaceSeparated picks a random free cell whose Chebyshev neighbourhood of the
// given radius contains no occupied cell. The chosen cell is added to occupied.
// Returns false when no such cell exists.
func PlaceSeparated(g *Grid, occupied map[Coord]bool, separation int, rng *rand.Rand) (Coord, bool) {
	candidates := g.FreeCells(occupied)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, c := range candidates {
		if tooClose(g, c, occupied, separation) {
			continue
		}
		occupied[c] = true
		return c, true
	}
	return Coord{}, false
}

// Relocate returns c unchanged when it is free and separated; otherwise it
// searches outward (BFS over in-bounds cells) for the nearest cell that is.
// When nothing separated is reachable it falls back to the nearest passable
// cell within a 3-cell box, and finally to c itself. The result is marked
// occupied.
func Relocate(g *Grid, c Coord, occupied map[Coord]bool, separation int) Coord {
	if g.Passable(c) && !occupied[c] {
		occupied[c] = true
		return c
	}

	visited := map[Coord]bool{c: true}
	queue := []Coord{c}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range current.Neighbors() {
			if !g.InBounds(n) || visited[n] {
				continue
			}
			visited[n] = true
			if g.Passable(n) && !occupied[n] && !tooClose(g, n, occupied, separation) {
				occupied[n] = true
				return n
			}
			queue = append(queue, n)
		}
	}

	for dx := -3; dx <= 3; dx++ {
		for dy := -3; dy <= 3; dy++ {
			n := c.Add(dx, dy)
			if g.Passable(n) {
				occupied[n] = true
				return n
			}
		}
	}
	return c
}

func tooClose(g *Grid, c Coord, occupied map[Coord]bool, separation int) bool {
	if separation <= 0 {
		return false
	}
	for dx := -separation; dx <= separation; dx++ {
		for dy := -separation; dy <= separation; dy++ {
			n := c.Add(dx, dy)
			if g.InBounds(n) && occupied[n] {
				return true
			}
		}
	}
	return false
}
