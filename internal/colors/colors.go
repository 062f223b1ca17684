// Package colors manages the per-room pool of colour slots. Colours are
// palette indexes rendered as decimal strings.
package colors

import (
	"math/rand/v2"
	"strconv"
)

// PaletteSize is the number of distinct colours: pink, light blue, orange,
// green, blue, red, turquoise, magenta, citrine.
const PaletteSize = 9

// Unused returns the lowest colour not in used
func Unused(used []string) (string, bool) {
	taken := make(map[string]bool, len(used))
	for _, c := range used {
		taken[c] = true
	}
	for i := 0; i < PaletteSize; i++ {
		id := strconv.Itoa(i)
		if !taken[id] {
			return id, true
		}
	}
	return "", false
}

// Random picks any colour, accepting a collision
func Random() string {
	return strconv.Itoa(rand.IntN(PaletteSize))
}

// Allocate returns the lowest free colour, or a random one when the palette
// is exhausted
func Allocate(used []string) string {
	if c, ok := Unused(used); ok {
		return c
	}
	return Random()
}

// Release removes one instance of c from slots. Occupancy always drops by
// one, so an unknown colour frees the most recently allocated slot.
func Release(slots []string, c string) []string {
	if len(slots) == 0 {
		return slots
	}
	idx := len(slots) - 1
	for i, s := range slots {
		if s == c {
			idx = i
			break
		}
	}
	out := make([]string, 0, len(slots)-1)
	out = append(out, slots[:idx]...)
	return append(out, slots[idx+1:]...)
}

// Valid reports whether c names a palette colour
func Valid(c string) bool {
	n, err := strconv.Atoi(c)
	return err == nil && n >= 0 && n < PaletteSize && strconv.Itoa(n) == c
}
