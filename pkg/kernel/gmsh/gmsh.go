// Package gmsh runs the Gmsh executable to mesh a .geo script.
//
// Requires gmsh on PATH: brew install gmsh (macOS), apt install gmsh (Linux).
package gmsh

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/matzehuels/tconf/pkg/errors"
	"github.com/matzehuels/tconf/pkg/kernel"
)

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "gmsh"

// Mesher shells out to gmsh. The zero value uses [DefaultBinary].
type Mesher struct {
	// Binary overrides the executable name or path.
	Binary string
	// Threads sets General.NumThreads when positive.
	Threads int
}

// New returns a Mesher using the gmsh binary on PATH.
func New() *Mesher { return &Mesher{} }

// Available reports whether the gmsh binary can be found.
func (m *Mesher) Available() bool {
	_, err := exec.LookPath(m.binary())
	return err == nil
}

// Mesh writes script to a temporary .geo file and meshes it into out with
// dimension dim.
func (m *Mesher) Mesh(ctx context.Context, script []byte, dim kernel.Dim, out string) error {
	bin, err := exec.LookPath(m.binary())
	if err != nil {
		return errors.Wrap(errors.ErrCodeMesherUnavailable, err,
			"meshing requires gmsh. Install with:\n  macOS:  brew install gmsh\n  Linux:  apt install gmsh")
	}

	dir, err := os.MkdirTemp("", "tconf-gmsh-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	geo := filepath.Join(dir, "model.geo")
	if err := os.WriteFile(geo, script, 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, m.args(geo, dim, out)...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("gmsh: %v: %s", err, stderr.String())
	}
	return nil
}

func (m *Mesher) args(geo string, dim kernel.Dim, out string) []string {
	args := []string{geo, "-" + strconv.Itoa(int(dim)), "-format", "msh", "-o", out}
	if m.Threads > 0 {
		args = append(args, "-nt", strconv.Itoa(m.Threads))
	}
	return args
}

func (m *Mesher) binary() string {
	if m.Binary != "" {
		return m.Binary
	}
	return DefaultBinary
}
