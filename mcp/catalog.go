package mcp

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Tool is a remotely invokable function as reported by the server.
// Immutable once fetched; lives for one orchestrator invocation.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Catalog is an ordered set of tools, unique by name, preserving the
// server-reported order.
type Catalog struct {
	tools *orderedmap.OrderedMap[string, Tool]
}

// NewCatalog builds a catalog from the given tools. Later duplicates of
// a name are dropped.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{
		tools: orderedmap.New[string, Tool](),
	}
	for _, t := range tools {
		c.Add(t)
	}
	return c
}

// Add appends a tool unless its name is already present.
func (c *Catalog) Add(t Tool) {
	if _, ok := c.tools.Get(t.Name); ok {
		return
	}
	c.tools.Set(t.Name, t)
}

// Get returns the tool with the given name.
func (c *Catalog) Get(name string) (Tool, bool) {
	if c == nil {
		return Tool{}, false
	}
	return c.tools.Get(name)
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return c.tools.Len()
}

// Tools returns the tools in catalog order.
func (c *Catalog) Tools() []Tool {
	if c == nil {
		return nil
	}
	out := make([]Tool, 0, c.tools.Len())
	for pair := c.tools.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
