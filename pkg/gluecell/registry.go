// Copyright 2026 Dispenso Robotics GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gluecell maps glue types to the Modbus addresses of the cell
// hardware that dispenses them.
package gluecell

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dispenso/gluecell/pkg/config"
)

// ErrUnknownGlueType is returned when no cell is configured for a glue type.
var ErrUnknownGlueType = errors.New("glue type not found in cell configuration")

// Cell is one configured glue cell.
type Cell struct {
	GlueType         string
	MotorAddress     int
	GeneratorAddress int
	FanAddress       int
}

// Registry resolves glue types to cells. It is safe for concurrent use;
// the cell table can be swapped at runtime when the operator reconfigures
// the machine.
type Registry struct {
	mu    sync.RWMutex
	cells []Cell
}

// NewRegistry builds a registry from the configured cells.
func NewRegistry(cells []config.CellConfig) *Registry {
	r := &Registry{}
	r.Replace(cells)
	return r
}

// Replace swaps the full cell table.
func (r *Registry) Replace(cells []config.CellConfig) {
	mapped := make([]Cell, 0, len(cells))
	for _, c := range cells {
		mapped = append(mapped, Cell{
			GlueType:         c.GlueType,
			MotorAddress:     c.MotorAddress,
			GeneratorAddress: c.GeneratorAddress,
			FanAddress:       c.FanAddress,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cells = mapped
}

// Cells returns a snapshot of the configured cells.
func (r *Registry) Cells() []Cell {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// MotorAddressForGlueType returns the Modbus motor address for the cell
// holding the given glue type.
func (r *Registry) MotorAddressForGlueType(glueType string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cell := range r.cells {
		if cell.GlueType == glueType {
			return cell.MotorAddress, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGlueType, glueType)
}
