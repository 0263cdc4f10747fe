package l2

import (
	"sort"

	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/gateway"
)

// Chain names accepted in layer_2_chain_name.
const (
	ChainThunder  = "Thunder"
	ChainBitNames = "BitNames"
)

// Registry maps chain names to adapters. It is built once at startup and read-only afterwards.
type Registry struct {
	adapters map[string]gateway.L2Adapter
}

// NewRegistry builds a registry from chain -> adapter pairs.
func NewRegistry(adapters map[string]gateway.L2Adapter) *Registry {
	copied := make(map[string]gateway.L2Adapter, len(adapters))
	for name, a := range adapters {
		if a != nil {
			copied[name] = a
		}
	}
	return &Registry{adapters: copied}
}

// Adapter implements gateway.L2Adapters.
func (r *Registry) Adapter(chain string) (gateway.L2Adapter, bool) {
	a, ok := r.adapters[chain]
	return a, ok
}

// Names lists registered chains in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
