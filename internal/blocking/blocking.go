// Package blocking holds the curated mapping of blocking-function
// fully-qualified names to their positional parameter-name list. A call to
// one of these names lowers to an explicit Call step with named arguments
// instead of an inline expression. The HTTP verbs share one
// url/headers/query/body/timeout/auth argument list, matching the wire
// format's connector argument shapes.
package blocking

// Registry maps a fully-qualified function name to its declared positional
// parameter names, used to translate `f(a, b)` into a named-argument Call
// step `f(param1: a, param2: b)`.
type Registry struct {
	params map[string][]string
}

// NewRegistry builds the default registry, one register call per function
// family.
func NewRegistry() *Registry {
	r := &Registry{params: make(map[string][]string)}
	r.registerHTTP()
	r.registerSys()
	return r
}

func (r *Registry) register(name string, params []string) {
	r.params[name] = params
}

var httpParams = []string{"url", "headers", "query", "body", "timeout", "auth"}

func (r *Registry) registerHTTP() {
	for _, verb := range []string{"get", "post", "put", "patch", "delete"} {
		r.register("http."+verb, httpParams)
	}
}

func (r *Registry) registerSys() {
	r.register("sys.log", []string{"data", "severity", "text", "json"})
	r.register("sys.get_env", []string{"name"})
	r.register("sys.sleep", []string{"seconds"})
}

// Lookup returns the declared parameter names for a blocking function, and
// whether it is known.
func (r *Registry) Lookup(name string) ([]string, bool) {
	p, ok := r.params[name]
	return p, ok
}

// IsBlocking reports whether name is a configured blocking function.
func (r *Registry) IsBlocking(name string) bool {
	_, ok := r.params[name]
	return ok
}

// Extend registers additional functions, used by the CLI's
// --blocking-functions flag to extend the built-in table without code
// changes.
func (r *Registry) Extend(extra map[string][]string) {
	for name, params := range extra {
		r.register(name, params)
	}
}
