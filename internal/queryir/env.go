package queryir

// Variables visible to `where` predicates. The engine builds one environment
// per candidate node with exactly these keys; the compiler type-checks
// predicates against EnvSchema.
const (
	EnvKind       = "kind"
	EnvText       = "text"
	EnvParentKind = "parent_kind"
	EnvPrevKind   = "prev_kind"
	EnvNextKind   = "next_kind"
	EnvField      = "field"
	EnvDepth      = "depth"
	EnvIndex      = "index"
	EnvChildCount = "child_count"
	EnvNamed      = "named"
	EnvLine       = "line"
)

// EnvSchema returns a zero-valued environment carrying the type of every
// predicate variable.
func EnvSchema() map[string]any {
	return map[string]any{
		EnvKind:       "",
		EnvText:       "",
		EnvParentKind: "",
		EnvPrevKind:   "",
		EnvNextKind:   "",
		EnvField:      "",
		EnvDepth:      0,
		EnvIndex:      0,
		EnvChildCount: 0,
		EnvNamed:      false,
		EnvLine:       0,
	}
}
