package eventdict

// buildConfig holds the path prefixes used by Build.
type buildConfig struct {
	innerPrefix string
	outerPrefix string
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithInnerPrefix prepends p to every inner path.
// The prefix is used verbatim, so include the trailing separator.
func WithInnerPrefix(p string) BuildOption {
	return func(c *buildConfig) {
		c.innerPrefix = p
	}
}

// WithOuterPrefix prepends p to every path.
// The prefix is used verbatim, so include the trailing separator.
//
// Example:
//
//	d := eventdict.Build(decls, eventdict.WithOuterPrefix("app."))
//	// d["tasks"]["added"] has Path() == "app.tasks.added"
func WithOuterPrefix(p string) BuildOption {
	return func(c *buildConfig) {
		c.outerPrefix = p
	}
}

// Build turns a declaration tree into a tree of descriptors with the same
// shape.
//
// For each key k:
//   - a Marker is declared with inner path innerPrefix+k and path outerPrefix+k
//   - a nested Dict is built with both prefixes extended by k+"."
//   - an already-built descriptor keeps its id and inner path; only its path
//     becomes outerPrefix+k
//   - anything else (Value, nil) is copied unchanged
//
// Build never fails. Use Validate to reject trees containing pass-through nodes.
func Build(decls Dict, opts ...BuildOption) Dict {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return build(decls, cfg.innerPrefix, cfg.outerPrefix)
}

func build(decls Dict, innerPrefix, outerPrefix string) Dict {
	out := make(Dict, len(decls))
	for k, node := range decls {
		switch n := node.(type) {
		case Dict:
			out[k] = build(n, innerPrefix+k+".", outerPrefix+k+".")
		case Marker:
			out[k] = n.Declare(innerPrefix+k, outerPrefix+k)
		case built:
			out[k] = n.withPath(outerPrefix + k)
		default:
			out[k] = node
		}
	}
	return out
}
