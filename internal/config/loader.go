// Package config assembles the raw documents of a multi-file project
// configuration: the root file, its imported security and api files, and one
// document per service. It performs no schema validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"backforge/internal/core"
)

// Role is the logical role of a document inside a Bundle.
type Role string

const (
	RoleRoot     Role = "root"
	RoleSecurity Role = "security"
	RoleAPI      Role = "api"
)

const servicePrefix = "service:"

// ServiceRole returns the role of the named service document.
func ServiceRole(name string) Role {
	return Role(servicePrefix + name)
}

// ServiceName returns the service name of a service role.
func (r Role) ServiceName() (string, bool) {
	return strings.CutPrefix(string(r), servicePrefix)
}

// Document is one raw parsed configuration document.
type Document struct {
	Role Role
	// Path is the slash-separated path inside the project FS. Inline service
	// documents carry the path of the file declaring them.
	Path string
	Root *Node
}

// Location formats a position inside the document for error messages.
func (d *Document) Location(n *Node) string {
	if n != nil && n.Line > 0 {
		return fmt.Sprintf("%s:%d", d.Path, n.Line)
	}
	return d.Path
}

// Bundle is the immutable set of documents loaded for one run.
type Bundle struct {
	docs     map[Role]*Document
	services []string
}

// NewBundle builds a Bundle from documents. Service documents keep the order
// in which they are passed.
func NewBundle(docs ...*Document) *Bundle {
	b := &Bundle{docs: make(map[Role]*Document, len(docs))}
	for _, d := range docs {
		if d == nil {
			continue
		}
		if _, exists := b.docs[d.Role]; exists {
			continue
		}
		b.docs[d.Role] = d
		if name, ok := d.Role.ServiceName(); ok {
			b.services = append(b.services, name)
		}
	}
	return b
}

// Document returns the document with the given role, or nil.
func (b *Bundle) Document(r Role) *Document {
	if b == nil {
		return nil
	}
	return b.docs[r]
}

// Root returns the root document.
func (b *Bundle) Root() *Document {
	return b.Document(RoleRoot)
}

// Services returns service names in declaration order.
func (b *Bundle) Services() []string {
	if b == nil {
		return nil
	}
	return slices.Clone(b.services)
}

// Roles returns every role in the bundle: root, security, api, then services
// in declaration order.
func (b *Bundle) Roles() []Role {
	var out []Role
	for _, r := range []Role{RoleRoot, RoleSecurity, RoleAPI} {
		if b.Document(r) != nil {
			out = append(out, r)
		}
	}
	for _, s := range b.Services() {
		out = append(out, ServiceRole(s))
	}
	return out
}

// Options configures a Loader.
type Options struct {
	// Workers bounds concurrent file reads. Zero means 4.
	Workers int
}

// Loader reads configuration documents from a file system.
type Loader struct {
	fsys    fs.FS
	workers int
}

// NewLoader creates a Loader reading from fsys.
func NewLoader(fsys fs.FS, opts Options) *Loader {
	w := opts.Workers
	if w <= 0 {
		w = 4
	}
	return &Loader{fsys: fsys, workers: w}
}

// Load reads the root document at root and everything it references. Every
// file is attempted; on failure the returned error is a core.ErrorList and the
// bundle is nil.
func Load(ctx context.Context, fsys fs.FS, root string) (*Bundle, error) {
	return NewLoader(fsys, Options{}).Load(ctx, root)
}

// fileRef is a document to read, with the location that referenced it.
type fileRef struct {
	role Role
	path string
	from string
}

type serviceEntry struct {
	name   string
	path   string
	inline *Node
	from   string
}

// Load reads the root document at root and everything it references.
func (l *Loader) Load(ctx context.Context, root string) (*Bundle, error) {
	rootDoc, rerr := l.read(fileRef{role: RoleRoot, path: path.Clean(root)})
	if rerr != nil {
		return nil, core.ErrorList{rerr}
	}

	var errs core.ErrorList
	imports, ierrs := importRefs(rootDoc)
	errs = append(errs, ierrs...)

	importDocs, err := l.readAll(ctx, imports)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	docs = append(docs, rootDoc)
	for _, r := range importDocs {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		docs = append(docs, r.doc)
	}

	entries, serrs := serviceEntries(rootDoc)
	errs = append(errs, serrs...)
	for _, d := range docs {
		if d.Role == RoleAPI {
			more, aerrs := serviceEntries(d)
			entries = append(entries, more...)
			errs = append(errs, aerrs...)
		}
	}

	entries, derrs := dedupeServices(entries)
	errs = append(errs, derrs...)

	var refs []fileRef
	for _, e := range entries {
		if e.inline == nil {
			refs = append(refs, fileRef{role: ServiceRole(e.name), path: e.path, from: e.from})
		}
	}
	fileDocs, err := l.readAll(ctx, refs)
	if err != nil {
		return nil, err
	}

	next := 0
	for _, e := range entries {
		if e.inline != nil {
			docs = append(docs, &Document{Role: ServiceRole(e.name), Path: e.path, Root: e.inline})
			continue
		}
		r := fileDocs[next]
		next++
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		docs = append(docs, r.doc)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return NewBundle(docs...), nil
}

type readResult struct {
	doc *Document
	err *core.Error
}

// readAll reads refs concurrently. Results keep the order of refs; the only
// error returned directly is context cancellation.
func (l *Loader) readAll(ctx context.Context, refs []fileRef) ([]readResult, error) {
	results := make([]readResult, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := l.read(ref)
			results[i] = readResult{doc: doc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return results, nil
}

func (l *Loader) read(ref fileRef) (*Document, *core.Error) {
	loc := ref.path
	if ref.from != "" {
		loc = ref.from
	}
	if !fs.ValidPath(ref.path) {
		return nil, core.Errorf(core.KindMissingConfigFile, loc, "%s file %q is outside the project root", ref.role, ref.path)
	}

	data, err := fs.ReadFile(l.fsys, ref.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.Errorf(core.KindMissingConfigFile, loc, "%s file %q does not exist", ref.role, ref.path)
		}
		return nil, core.Errorf(core.KindUnreadableConfig, ref.path, "read failed: %v", err)
	}

	var node *Node
	switch strings.ToLower(path.Ext(ref.path)) {
	case ".toml":
		node, err = decodeTOML(data)
	case ".yaml", ".yml", ".json", "":
		node, err = decodeYAML(data)
	default:
		return nil, core.Errorf(core.KindUnreadableConfig, ref.path, "unsupported file extension %q", path.Ext(ref.path))
	}
	if err != nil {
		return nil, core.Errorf(core.KindUnreadableConfig, ref.path, "%v", err)
	}
	if !node.IsMap() {
		return nil, core.Errorf(core.KindUnreadableConfig, ref.path, "top-level value must be a map, got %s", node.Kind)
	}
	return &Document{Role: ref.role, Path: ref.path, Root: node}, nil
}

// relative resolves a reference against the directory of the referencing
// document.
func relative(from, ref string) string {
	return path.Join(path.Dir(from), ref)
}

func importRefs(root *Document) ([]fileRef, core.ErrorList) {
	imp := root.Root.Get("imports")
	if imp == nil || imp.Kind == NullNode {
		return nil, nil
	}
	if !imp.IsMap() {
		return nil, core.ErrorList{core.Errorf(core.KindUnreadableConfig, root.Location(imp), "imports must be a map of role to file")}
	}

	var refs []fileRef
	var errs core.ErrorList
	for _, e := range imp.Entries {
		role := Role(e.Key)
		if role != RoleSecurity && role != RoleAPI {
			errs = append(errs, core.Errorf(core.KindUnreadableConfig, root.Location(e.Value), "unknown import %q (expected security or api)", e.Key))
			continue
		}
		if !e.Value.IsScalar() || e.Value.Value == "" {
			errs = append(errs, core.Errorf(core.KindUnreadableConfig, root.Location(e.Value), "import %q must be a file path", e.Key))
			continue
		}
		refs = append(refs, fileRef{role: role, path: relative(root.Path, e.Value.Value), from: root.Location(e.Value)})
	}
	return refs, errs
}

// serviceEntries reads the services key of doc. Both a list of
// {name, file | inline content} maps and a map of name to file or inline
// content are accepted.
func serviceEntries(doc *Document) ([]serviceEntry, core.ErrorList) {
	svc := doc.Root.Get("services")
	if svc == nil || svc.Kind == NullNode {
		return nil, nil
	}

	var out []serviceEntry
	var errs core.ErrorList
	add := func(name string, body *Node) {
		loc := doc.Location(body)
		if body.IsScalar() {
			out = append(out, serviceEntry{name: name, path: relative(doc.Path, body.Value), from: loc})
			return
		}
		if !body.IsMap() {
			errs = append(errs, core.Errorf(core.KindUnreadableConfig, loc, "service %q must be a file path or a map", name))
			return
		}
		if file := body.Get("file"); file != nil {
			if !file.IsScalar() || file.Value == "" {
				errs = append(errs, core.Errorf(core.KindUnreadableConfig, doc.Location(file), "service %q file must be a path", name))
				return
			}
			out = append(out, serviceEntry{name: name, path: relative(doc.Path, file.Value), from: loc})
			return
		}
		out = append(out, serviceEntry{name: name, path: doc.Path, inline: body, from: loc})
	}

	switch svc.Kind {
	case MapNode:
		for _, e := range svc.Entries {
			add(e.Key, e.Value)
		}
	case ListNode:
		for i, item := range svc.Items {
			name := item.Get("name").Text()
			if name == "" {
				errs = append(errs, core.Errorf(core.KindUnreadableConfig, doc.Location(item), "service entry %d has no name", i))
				continue
			}
			add(name, item)
		}
	default:
		errs = append(errs, core.Errorf(core.KindUnreadableConfig, doc.Location(svc), "services must be a list or a map"))
	}
	return out, errs
}

// dedupeServices keeps the first entry of each name and reports the rest.
func dedupeServices(entries []serviceEntry) ([]serviceEntry, core.ErrorList) {
	first := make(map[string]serviceEntry, len(entries))
	var out []serviceEntry
	var errs core.ErrorList
	for _, e := range entries {
		if prev, dup := first[e.name]; dup {
			errs = append(errs, core.Errorf(core.KindDuplicateServiceName, e.from,
				"service %q is already declared at %s", e.name, prev.from))
			continue
		}
		first[e.name] = e
		out = append(out, e)
	}
	return out, errs
}
