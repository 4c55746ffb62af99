package annotation

import (
	"log/slog"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/sarang1991/findbugs/internal/hierarchy"
	"github.com/sarang1991/findbugs/internal/symbol"
)

// Options configures a Database.
type Options struct {
	// Catalog entries are consulted after DefaultCatalog.
	Catalog []CatalogEntry

	// NoDefaultCatalog drops DefaultCatalog.
	NoDefaultCatalog bool

	// CheckAll treats every otherwise unannotated non-void method as
	// Check(PriorityLow).
	CheckAll bool
}

// Database resolves annotations for method references. Results are
// memoized per canonical reference and the database is safe for
// concurrent use.
type Database struct {
	hierarchy *hierarchy.Snapshot
	catalog   []CatalogEntry
	checkAll  bool
	resolved  *xsync.Map[*symbol.MethodRef, Annotation]
}

func NewDatabase(h *hierarchy.Snapshot, opts Options) *Database {
	var catalog []CatalogEntry
	if !opts.NoDefaultCatalog {
		catalog = append(catalog, DefaultCatalog...)
	}
	catalog = append(catalog, opts.Catalog...)
	return &Database{
		hierarchy: h,
		catalog:   catalog,
		checkAll:  opts.CheckAll,
		resolved:  xsync.NewMap[*symbol.MethodRef, Annotation](),
	}
}

// Resolve returns the obligation for ref:
//  1. a declaration on ref's owner, as a direct annotation;
//  2. otherwise the first declaration found walking the ancestors of the
//     owner breadth first (superclass chain, then interfaces level by level
//     in declaration order), as an inherited annotation;
//  3. otherwise Check(PriorityLow) if the catalog lists the method on the
//     owner or any ancestor;
//  4. otherwise Unset.
//
// Classes missing from the snapshot end their branch of the walk.
func (d *Database) Resolve(ref *symbol.MethodRef) Annotation {
	if a, ok := d.resolved.Load(ref); ok {
		return a
	}
	a := d.resolve(ref)
	actual, _ := d.resolved.LoadOrStore(ref, a)
	return actual
}

func (d *Database) resolve(ref *symbol.MethodRef) Annotation {
	owner, ok := d.hierarchy.Lookup(ref.Owner)
	if ok {
		if a, ok := declared(owner.Class, ref.Name, ref.Signature); ok {
			return a
		}
	}

	var ancestors []*hierarchy.ClassInfo
	if !ref.IsConstructor() {
		ancestors = d.hierarchy.Ancestors(ref.Owner)
	}
	for _, anc := range ancestors {
		if a, ok := declared(anc.Class, ref.Name, ref.Signature); ok {
			slog.Debug("inherited annotation",
				slog.String("method", ref.String()),
				slog.String("from", anc.Name),
				slog.String("annotation", a.String()))
			a.Direct = false
			return a
		}
	}

	if lookupCatalog(d.catalog, ref, ref.Owner) {
		return CheckWith(PriorityLow, false)
	}
	for _, anc := range ancestors {
		if lookupCatalog(d.catalog, ref, anc.Name) {
			return CheckWith(PriorityLow, false)
		}
	}

	if d.checkAll && ref.ReturnType() != "V" && !ref.IsConstructor() {
		return CheckWith(PriorityLow, false)
	}
	return Annotation{}
}

// Len returns the number of memoized resolutions.
func (d *Database) Len() int {
	return d.resolved.Size()
}

// Clear drops memoized resolutions.
func (d *Database) Clear() {
	d.resolved.Clear()
}
