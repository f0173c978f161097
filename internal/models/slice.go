package models

import (
	"path/filepath"
	"sort"
	"strconv"
)

// Slice describes a single 2D slice file of a volume stored as an image sequence
type Slice struct {
	// Filename is the base name of the slice file
	Filename string

	// Index is the position of this slice in the sequence
	Index int

	// Position is the physical position of the slice along the stacking axis in mm
	Position float64
}

// Stack is an ordered sequence of slices sharing the same in-plane dimensions
type Stack struct {
	// Dir is the directory holding the slice files
	Dir string

	// Slices are sorted by the number embedded in their filename
	Slices []Slice

	// Width and Height are the in-plane dimensions in pixels
	Width, Height int

	// SliceGap is the physical distance between consecutive slices in mm
	SliceGap float64
}

// NewStack orders filenames by their embedded slice number and assigns
// positions along the stacking axis.
func NewStack(dir string, filenames []string, sliceGap float64) *Stack {
	names := append([]string(nil), filenames...)
	sort.SliceStable(names, func(i, j int) bool {
		return SliceNumber(names[i]) < SliceNumber(names[j])
	})

	stack := &Stack{Dir: dir, SliceGap: sliceGap, Slices: make([]Slice, len(names))}
	for i, name := range names {
		stack.Slices[i] = Slice{
			Filename: name,
			Index:    i,
			Position: float64(i) * sliceGap,
		}
	}
	return stack
}

// Path returns the full path of slice i.
func (s *Stack) Path(i int) string {
	return filepath.Join(s.Dir, s.Slices[i].Filename)
}

// Depth is the number of slices.
func (s *Stack) Depth() int { return len(s.Slices) }

// SliceNumber extracts the digits of a filename as an integer, e.g.
// "slice_012.jpg" -> 12. Filenames without digits sort first.
func SliceNumber(filename string) int {
	base := filepath.Base(filename)
	digits := make([]byte, 0, len(base))
	for i := 0; i < len(base); i++ {
		if base[i] >= '0' && base[i] <= '9' {
			digits = append(digits, base[i])
		}
	}
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0
	}
	return n
}
