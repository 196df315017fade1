package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guest is a WASI program that calls host functions through the bridge.
type Guest interface {
	// Name identifies the guest. It is the compilation cache key and the
	// program name (argv[0]) the guest sees.
	Name() string

	// Module returns the WASM binary.
	Module() []byte

	// Args returns the arguments after argv[0].
	Args() []string
}

// ModuleGuest is a Guest backed by an in-memory binary.
type ModuleGuest struct {
	name   string
	module []byte
	args   []string
}

func NewModuleGuest(name string, module []byte, args ...string) *ModuleGuest {
	return &ModuleGuest{name: name, module: module, args: args}
}

func (g *ModuleGuest) Name() string   { return g.name }
func (g *ModuleGuest) Module() []byte { return g.module }
func (g *ModuleGuest) Args() []string { return g.args }

// LoadGuest reads a WASM binary from path. The guest is named after the
// file without its extension.
func LoadGuest(path string, args ...string) (*ModuleGuest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guest module: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewModuleGuest(name, data, args...), nil
}
