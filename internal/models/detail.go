package models

import "fmt"

// DetailLevel gates which metric categories a sampling pass reads, trading
// fidelity for overhead.
type DetailLevel string

// Detail levels, cheapest first.
const (
	DetailMinimal  DetailLevel = "minimal"
	DetailNormal   DetailLevel = "normal"
	DetailDetailed DetailLevel = "detailed"
	DetailVerbose  DetailLevel = "verbose"
)

// ParseDetailLevel parses a user-supplied detail level name.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case DetailMinimal, DetailNormal, DetailDetailed, DetailVerbose:
		return DetailLevel(s), nil
	}
	return "", fmt.Errorf("unknown detail level %q", s)
}

// Categories returns the category set sampled at this level; nil means every
// category.
func (d DetailLevel) Categories() map[Category]bool {
	switch d {
	case DetailMinimal:
		return map[Category]bool{CategoryTiming: true}
	case DetailNormal:
		return map[Category]bool{
			CategoryTiming:    true,
			CategoryMemory:    true,
			CategoryRendering: true,
			CategoryPhysics:   true,
		}
	case DetailDetailed:
		return map[Category]bool{
			CategoryTiming:    true,
			CategoryMemory:    true,
			CategoryRendering: true,
			CategoryPhysics:   true,
			CategoryCPU:       true,
			CategoryGPU:       true,
			CategoryNetwork:   true,
		}
	default:
		return nil
	}
}
