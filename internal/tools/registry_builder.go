package tools

import "github.com/querybird/querybird/internal/schema"

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	order []string
	tools map[string]schema.Tool
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]schema.Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
// Adding a second tool under an existing name replaces it in place.
func (b *RegistryBuilder) WithTool(tool schema.Tool) *RegistryBuilder {
	if _, ok := b.tools[tool.Name()]; !ok {
		b.order = append(b.order, tool.Name())
	}
	b.tools[tool.Name()] = tool

	return b
}

// Build produces an immutable Registry from the accumulated tools.
func (b *RegistryBuilder) Build() *Registry {
	tools := make(map[string]schema.Tool, len(b.tools))
	for k, v := range b.tools {
		tools[k] = v
	}
	return &Registry{order: append([]string(nil), b.order...), tools: tools}
}
