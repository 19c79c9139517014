// Package geometry describes the parameter space a distribution lives on.
// Only the information the samplers and priors need is kept: the parameter
// dimension and, for images, the function shape.
package geometry

import (
	"fmt"

	"github.com/pkg/errors"
)

// Geometry of a parameter vector
type Geometry interface {
	ParDim() int
	fmt.Stringer
}

// Continuous1D is a signal sampled on a 1D grid
type Continuous1D struct {
	N int
}

// ParDim implements Geometry
func (g Continuous1D) ParDim() int { return g.N }

func (g Continuous1D) String() string { return fmt.Sprintf("Continuous1D(%d)", g.N) }

// Continuous2D is a function sampled on a Rows x Cols grid, stored row-major
type Continuous2D struct {
	Rows int
	Cols int
}

// ParDim implements Geometry
func (g Continuous2D) ParDim() int { return g.Rows * g.Cols }

// FunShape returns the grid shape
func (g Continuous2D) FunShape() (int, int) { return g.Rows, g.Cols }

func (g Continuous2D) String() string { return fmt.Sprintf("Continuous2D(%d,%d)", g.Rows, g.Cols) }

// Image2D is a Rows x Cols image, stored row-major
type Image2D struct {
	Rows int
	Cols int
}

// ParDim implements Geometry
func (g Image2D) ParDim() int { return g.Rows * g.Cols }

// FunShape returns the image shape
func (g Image2D) FunShape() (int, int) { return g.Rows, g.Cols }

func (g Image2D) String() string { return fmt.Sprintf("Image2D(%d,%d)", g.Rows, g.Cols) }

// Discrete is an unordered collection of N parameters. It has no notion of
// neighbors, so differential operators are not defined on it.
type Discrete struct {
	N int
}

// ParDim implements Geometry
func (g Discrete) ParDim() int { return g.N }

func (g Discrete) String() string { return fmt.Sprintf("Discrete(%d)", g.N) }

// Default returns the geometry used when only a dimension is known.
func Default(dim int) Geometry {
	return Continuous1D{N: dim}
}

// Check returns an error if the geometry has no parameters
func Check(g Geometry) error {
	if g == nil {
		return errors.New("Geometry is required")
	}
	if g.ParDim() < 1 {
		return errors.Errorf("Geometry %v has invalid dimension %d", g, g.ParDim())
	}
	return nil
}
