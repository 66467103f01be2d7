package resolve

import (
	"slices"
	"strings"

	"backforge/internal/config"
	"backforge/internal/core"
)

// resolveSettings reads project settings from the root document. The security
// document, when imported, overrides root auth keys and extends its
// permissions.
func (r *resolver) resolveSettings() core.Settings {
	root := r.bundle.Root()
	s := core.Settings{Project: root.Root.Get("project").Text()}

	switch db := root.Root.Get("database"); {
	case db.IsScalar():
		s.Provider = db.Value
	case db.IsMap():
		s.Provider = db.Get("provider").Text()
	}
	s.Provider = strings.ToLower(s.Provider)

	r.applyAuth(&s.Auth, root, root.Root.Get("auth"))
	if sec := r.bundle.Document(config.RoleSecurity); sec != nil {
		r.applyAuth(&s.Auth, sec, sec.Root.Get("auth"))
		s.Auth.Permissions = appendUnique(s.Auth.Permissions, sec.Root.Get("permissions").Strings()...)
	}
	return s
}

func (r *resolver) applyAuth(a *core.AuthSettings, doc *config.Document, n *config.Node) {
	if n == nil || n.Kind == config.NullNode {
		return
	}
	if n.IsScalar() {
		enabled, err := n.Bool()
		if err != nil {
			r.addError(core.KindUnreadableConfig, doc.Location(n), "auth must be a boolean or a map: %v", err)
			return
		}
		a.Enabled = enabled
		return
	}
	if !n.IsMap() {
		r.addError(core.KindUnreadableConfig, doc.Location(n), "auth must be a boolean or a map")
		return
	}
	if en := n.Get("enabled"); en != nil {
		enabled, err := en.Bool()
		if err != nil {
			r.addError(core.KindUnreadableConfig, doc.Location(en), "auth.enabled: %v", err)
		} else {
			a.Enabled = enabled
		}
	}
	if mode := n.Get("mode").Text(); mode != "" {
		a.Mode = mode
	}
	a.Permissions = appendUnique(a.Permissions, n.Get("permissions").Strings()...)
}

// resolveService builds the ServiceSpec of a service document. tables are the
// names collected from the document.
func (r *resolver) resolveService(name string, doc *config.Document, tables []string) *core.ServiceSpec {
	svc := &core.ServiceSpec{Name: name, Source: doc.Path, Tables: tables}

	if a := doc.Root.Get("auth"); a != nil {
		enabled, err := a.Bool()
		if err != nil {
			r.addError(core.KindUnreadableConfig, doc.Location(a), "service %q auth: %v", name, err)
		}
		svc.Auth = enabled
	}
	svc.RateLimit = r.rateLimit(doc, doc.Root.Get("rate_limit"))
	if svc.RateLimit == nil {
		if api := r.bundle.Document(config.RoleAPI); api != nil {
			svc.RateLimit = r.rateLimit(api, api.Root.Get("rate_limit"))
		}
	}

	eps := doc.Root.Get("endpoints")
	switch {
	case eps == nil || eps.Kind == config.NullNode:
	case eps.IsList():
		for _, item := range eps.Items {
			if ep, ok := r.resolveEndpoint(name, doc, item); ok {
				svc.Endpoints = append(svc.Endpoints, ep)
			}
		}
	default:
		r.addError(core.KindUnreadableConfig, doc.Location(eps), "service %q endpoints must be a list", name)
	}
	return svc
}

func (r *resolver) resolveEndpoint(service string, doc *config.Document, n *config.Node) (core.Endpoint, bool) {
	if !n.IsMap() {
		r.addError(core.KindUnreadableConfig, doc.Location(n), "service %q: endpoint must be a map", service)
		return core.Endpoint{}, false
	}
	ep := core.Endpoint{
		Method:      strings.ToUpper(n.Get("method").Text()),
		Path:        n.Get("path").Text(),
		Permissions: n.Get("permissions").Strings(),
	}
	if ep.Method == "" || ep.Path == "" {
		r.addError(core.KindUnreadableConfig, doc.Location(n), "service %q: endpoint needs a method and a path", service)
		return core.Endpoint{}, false
	}
	auth, err := n.Get("auth").Bool()
	if err != nil {
		r.addError(core.KindUnreadableConfig, doc.Location(n.Get("auth")), "endpoint %s %s auth: %v", ep.Method, ep.Path, err)
	}
	ep.Auth = auth
	ep.RateLimit = r.rateLimit(doc, n.Get("rate_limit"))
	return ep, true
}

func (r *resolver) rateLimit(doc *config.Document, n *config.Node) *core.RateLimit {
	if n == nil || n.Kind == config.NullNode {
		return nil
	}
	if !n.IsMap() {
		r.addError(core.KindUnreadableConfig, doc.Location(n), "rate_limit must be a map with requests and window")
		return nil
	}
	requests, err := n.Get("requests").Int()
	if err != nil || requests <= 0 {
		r.addError(core.KindUnreadableConfig, doc.Location(n), "rate_limit.requests must be a positive integer")
		return nil
	}
	return &core.RateLimit{Requests: requests, Window: n.Get("window").Text()}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
