package extraction

// Provenance locates a record in the source tree. Lines are 1-indexed and inclusive.
type Provenance struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet,omitempty"`
}

// IdentityKind is the static classification of a node's identity argument.
type IdentityKind string

const (
	IdentityLiteral    IdentityKind = "literal"
	IdentityPattern    IdentityKind = "pattern"
	IdentityNonLiteral IdentityKind = "nonliteral"
	IdentityNone       IdentityKind = "none"
)

// Identity classifies the identity argument of a UI-construction call.
// Value is set only for literal (the string) and pattern (the template).
type Identity struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value,omitempty"`
}

// Node is one UI-construction call site.
type Node struct {
	ID         string     `json:"node_id"`
	Type       string     `json:"type"`
	Identity   Identity   `json:"identity"`
	Provenance Provenance `json:"provenance"`

	// Column is the 0-indexed start column, used for ordering only.
	Column int `json:"-"`
}

// EdgeFeature names the syntactic feature that produced a containment edge.
type EdgeFeature string

const (
	FeatureNesting     EdgeFeature = "nesting"
	FeatureScopedBlock EdgeFeature = "scoped-block"
	FeatureAttachCall  EdgeFeature = "attach-call"
)

// Edge is a parent-child containment relation between two nodes of the same file.
type Edge struct {
	Parent  string      `json:"parent"`
	Child   string      `json:"child"`
	Order   int         `json:"order_index"`
	Feature EdgeFeature `json:"feature"`
}

// RootKind names the construct that produced a root.
type RootKind string

const (
	RootYield RootKind = "yield"
	RootWith  RootKind = "with"
)

// Root is a parentless node produced by a root-producing construct, with its tree summary.
type Root struct {
	ID            string   `json:"root_id"`
	NodeID        string   `json:"node_id"`
	Kind          RootKind `json:"kind"`
	Container     string   `json:"container"` // e.g. "method:App.compose", "function:build", "module"
	StructureHash string   `json:"structure_hash"`
	Shape         string   `json:"shape"`
	NodeIDs       []string `json:"node_ids"` // reachable nodes, root first, depth-first in edge order
}

// Edge-case buckets for structural extraction.
const (
	BucketParseError               = "parse_error"
	BucketIDNonLiteral             = "id_nonliteral"
	BucketIDPattern                = "id_pattern"
	BucketIDKwargsSplat            = "id_kwargs_splat"
	BucketChildSpreadUnresolved    = "child_spread_unresolved"
	BucketChildUnresolved          = "child_unresolved"
	BucketScopedChildInControlFlow = "scoped_child_in_control_flow"
	BucketWithMultipleUIItems      = "with_multiple_ui_items"
	BucketAttachParentUnresolved   = "attach_parent_unresolved"
	BucketAttachChildUnresolved    = "attach_child_unresolved"
	BucketMultipleParents          = "multiple_parents"
	BucketContainmentCycle         = "containment_cycle"
	BucketYieldFromUnmodeled       = "yield_from_unmodeled"
	BucketDialectStarImport        = "dialect_star_import"
	BucketUICallUnrecognizedShape  = "ui_call_unrecognized_shape"
)

// Uncertainty buckets for selector extraction.
const (
	BucketCSSParseError              = "css_parse_error"
	BucketInlineCSSUnextractable     = "py_default_css_unextractable"
	BucketInlineCSSPresentUnresolved = "py_default_css_present_but_unextracted"
)

// EdgeCase records a recognized construct that could not be fully modeled.
type EdgeCase struct {
	Bucket     string     `json:"bucket"`
	Provenance Provenance `json:"provenance"`
	Detail     string     `json:"detail,omitempty"`
}

// SelectorKind distinguishes id and class selector tokens.
type SelectorKind string

const (
	SelectorID    SelectorKind = "id"
	SelectorClass SelectorKind = "class"
)

// SelectorToken is one id or class occurrence in a rule's selector.
// Tokens of the same rule share Location and SelectorText.
type SelectorToken struct {
	Kind         SelectorKind `json:"kind"`
	Value        string       `json:"value"`
	Location     Provenance   `json:"rule_location"`
	SelectorText string       `json:"selector_text"`
}

// CSSUncertainty records a stylesheet region that could not be indexed.
type CSSUncertainty struct {
	Bucket     string     `json:"bucket"`
	Provenance Provenance `json:"provenance"`
	Detail     string     `json:"detail,omitempty"`
}

// FileFailure records a file whose results were discarded.
type FileFailure struct {
	File   string `json:"file"`
	Stage  string `json:"stage"` // "read", "layout", "stylesheet"
	Reason string `json:"reason"`
}

// FileLayout is the structural extraction result for one source file.
type FileLayout struct {
	File      string     `json:"file"`
	Nodes     []Node     `json:"nodes"`
	Edges     []Edge     `json:"edges"`
	Roots     []Root     `json:"roots"`
	EdgeCases []EdgeCase `json:"edge_cases"`
}

// FileSelectors is the selector extraction result for one file.
type FileSelectors struct {
	File          string           `json:"file"`
	Tokens        []SelectorToken  `json:"tokens"`
	Uncertainties []CSSUncertainty `json:"uncertainties"`
}
