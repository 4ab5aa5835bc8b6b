package taskrunner

// Context is the fully-resolved, immutable view of a loaded config:
// every target is already built, extends-folded, and canonicalized.
// Nothing here changes after BuildContext returns; per-invocation mutable
// state (outputs, cleanup) lives alongside it, not inside it.
type Context struct {
	ConfigPath string
	Globals    map[string]string
	Targets    map[FQN]Target
	Registry   *Registry
}

// GetTarget resolves ref (a short name or "tag.name" string) against
// the registry and, if found, returns the concrete Target.
func (c *Context) GetTarget(ref string) (Target, LookupResult) {
	lr := c.Registry.Lookup(ref)
	if lr.Kind != Found {
		return nil, lr
	}
	t, ok := c.Targets[lr.FQN]
	if !ok {
		return nil, LookupResult{Kind: NotFound}
	}
	return t, lr
}

// Runtime bundles everything a target's Run/Start/Stop/Build/Status
// method needs beyond its own fields: the resolved context, the
// per-invocation outputs store, the cleanup stack, and the directory
// .taskrunner/ metadata is rooted under.
type Runtime struct {
	Context  *Context
	Outputs  *OutputsManager
	Cleanup  *CleanupStack
	MetaRoot string
}
