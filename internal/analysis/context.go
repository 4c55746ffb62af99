package analysis

import (
	"log/slog"

	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/internal/hierarchy"
	"github.com/sarang1991/findbugs/internal/metadata"
	"github.com/sarang1991/findbugs/internal/symbol"
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// Options configures a Context.
type Options struct {
	Annotations annotation.Options
}

// Context is the state of one analysis run. It is built before detection
// starts and only its caches change afterwards.
type Context struct {
	Symbols     *symbol.Table
	Hierarchy   *hierarchy.Snapshot
	Metadata    *metadata.Cache
	Annotations *annotation.Database
}

// NewContext builds the run state from every class on the classpath,
// application and auxiliary alike. Declared methods and fields are interned
// up front.
func NewContext(classes []*classfile.Class, opts Options) *Context {
	symbols := symbol.NewTable()
	h := hierarchy.New(classes)
	for _, c := range classes {
		for _, m := range c.Methods {
			symbols.Declared(c, m)
		}
		for _, f := range c.Fields {
			symbols.FieldRef(c.Name, f.Name, f.Descriptor, f.IsStatic())
		}
	}
	slog.Debug("analysis context ready",
		slog.Int("classes", h.Len()),
		slog.Int("symbols", symbols.Len()))
	return &Context{
		Symbols:     symbols,
		Hierarchy:   h,
		Metadata:    metadata.NewCache(symbols),
		Annotations: annotation.NewDatabase(h, opts.Annotations),
	}
}

// Methods returns the declared methods of class in declaration order.
func (c *Context) Methods(class *classfile.Class) []*MethodInfo {
	out := make([]*MethodInfo, 0, len(class.Methods))
	for _, m := range class.Methods {
		out = append(out, NewMethodInfo(class, m, c.Symbols))
	}
	return out
}

// Close releases the run's caches.
func (c *Context) Close() {
	c.Annotations.Clear()
	c.Metadata.Clear()
	c.Symbols.Clear()
}
