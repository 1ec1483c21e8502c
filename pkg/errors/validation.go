package errors

import (
	"math"
	"strings"
	"unicode"
)

// bandSlack absorbs floating point noise in band comparisons, relative to the
// outer radius.
const bandSlack = 1e-12

// ValidateBand checks the band geometry.
//
// Validation rules:
//   - All values finite
//   - Half-thickness a strictly positive; a = 0 leaves no band to mesh
//   - rInner - a >= 0 (the band does not cross the center)
//   - rInner + a <= rOuter (the band fits inside the domain)
func ValidateBand(rInner, a, rOuter float64) error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"rInner", rInner}, {"a", a}, {"rOuter", rOuter}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return New(ErrCodeInvalidBand, "%s must be finite, got %g", f.name, f.v)
		}
	}
	if a <= 0 {
		return New(ErrCodeInvalidBand, "band half-thickness a must be positive, got %g", a)
	}
	slack := bandSlack * math.Max(1, math.Abs(rOuter))
	if rInner-a < -slack {
		return New(ErrCodeInvalidBand, "band crosses the center: rInner-a = %g < 0", rInner-a)
	}
	if rInner+a > rOuter+slack {
		return New(ErrCodeInvalidBand, "band exceeds the domain: rInner+a = %g > rOuter = %g", rInner+a, rOuter)
	}
	return nil
}

// ValidateMeshSizes checks the target element sizes in and outside the band.
func ValidateMeshSizes(hBand, hOuter float64) error {
	if !(hBand > 0) || math.IsInf(hBand, 0) {
		return New(ErrCodeInvalidInput, "h_band must be positive, got %g", hBand)
	}
	if !(hOuter > 0) || math.IsInf(hOuter, 0) {
		return New(ErrCodeInvalidInput, "h_outer must be positive, got %g", hOuter)
	}
	return nil
}

// ValidateSectors checks the sector count. Arcs must span less than π, so
// at least 3 sectors are required. When even is set the count must also be
// even so that the x axis lies on sector boundaries.
func ValidateSectors(n int, even bool) error {
	if n < 3 {
		return New(ErrCodeInvalidInput, "sectors must be at least 3, got %d", n)
	}
	if even && n%2 != 0 {
		return New(ErrCodeInvalidInput, "sectors must be even for a revolved model, got %d", n)
	}
	return nil
}

// ValidateHalfAngle checks the revolution half-angle, which must lie in
// (0, π/2].
func ValidateHalfAngle(delta float64) error {
	if !(delta > 0) || delta > math.Pi/2+1e-12 {
		return New(ErrCodeInvalidInput, "half-angle must be in (0, π/2], got %g", delta)
	}
	return nil
}

// ValidateBump checks the bump coefficient applied to radial curves.
func ValidateBump(bump float64) error {
	if !(bump > 0) || math.IsInf(bump, 0) {
		return New(ErrCodeInvalidInput, "bump must be positive, got %g", bump)
	}
	return nil
}

// ValidateOutputPath validates a user supplied output file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must name a file, not a directory
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "path must name a file: %q", path)
	}

	return nil
}
