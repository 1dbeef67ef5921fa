package api

// Catalog is the declarative document that drives a conversion.
// It names which source types become which destination components and how
// their attributes and action counts are resolved.
type Catalog struct {
	// Version of the catalog format.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Root is the top-level source node the type index starts from (e.g. "system").
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
	// DescendSequences lets the type index enter one-element sequences of mappings.
	DescendSequences bool `json:"descend_sequences,omitempty" yaml:"descend_sequences,omitempty"`
	// Required inputs that must be supplied before any tree is built.
	Required []string `json:"required,omitempty" yaml:"required,omitempty"`
	// ClassMap supplies a rule's source type from its target class when the
	// rule declares none.
	ClassMap map[string]string `json:"class_map,omitempty" yaml:"class_map,omitempty"`
	// ClassRemap renames a resolved "class" attribute into the node's class.
	ClassRemap map[string]string `json:"class_remap,omitempty" yaml:"class_remap,omitempty"`
	// AttrRemap rewrites attribute values: attribute name -> old value -> new value.
	AttrRemap map[string]map[string]any `json:"attr_remap,omitempty" yaml:"attr_remap,omitempty"`
	// LowercaseStrings lower-cases every resolved string value.
	LowercaseStrings bool `json:"lowercase_strings,omitempty" yaml:"lowercase_strings,omitempty"`
	// Inherit lists, per target class, attributes taken from the nearest
	// ancestor when the component has none.
	Inherit map[string][]string `json:"inherit,omitempty" yaml:"inherit,omitempty"`
	// Strategies selects counter correlation per target class ("direct", "substring").
	Strategies map[string]string `json:"strategies,omitempty" yaml:"strategies,omitempty"`
	// GlobalFallback retries counter names verbatim when the qualified name is missing.
	GlobalFallback bool `json:"global_fallback,omitempty" yaml:"global_fallback,omitempty"`

	System     *Container  `json:"system,omitempty" yaml:"system,omitempty"`
	Containers []Container `json:"containers,omitempty" yaml:"containers,omitempty"`
	Rules      []Rule      `json:"rules" yaml:"rules"`
}

// Container declares attributes of a structural node such as "system" or
// "system.chip".
type Container struct {
	// Path of the destination node.
	Path string `json:"path" yaml:"path"`
	// Source path the attributes resolve against. Defaults to the catalog root.
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	Static     []Static    `json:"static,omitempty" yaml:"static,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Computed   []Computed  `json:"computed,omitempty" yaml:"computed,omitempty"`
}

// Rule maps every instance of one source type to a destination component.
type Rule struct {
	// Name identifies the rule in diagnostics. Defaults to "<source_type>_<target_class>".
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	SourceType  string `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	TargetClass string `json:"target_class" yaml:"target_class"`
	// Parent is the destination path instances are created under.
	Parent string `json:"parent" yaml:"parent"`
	// NameSuffix is appended to the component name with "_".
	NameSuffix string `json:"name_suffix,omitempty" yaml:"name_suffix,omitempty"`
	// Criteria is "always" (default), "never" or a JSONPath filter such as
	// "@.name == 'dcache'".
	Criteria   string      `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	Static     []Static    `json:"static,omitempty" yaml:"static,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Computed   []Computed  `json:"computed,omitempty" yaml:"computed,omitempty"`
	Inherit    []string    `json:"inherit,omitempty" yaml:"inherit,omitempty"`
	// Strategy overrides the per-class strategy for this rule.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Fragment overrides the counter-name fragment used by the substring strategy.
	Fragment string   `json:"fragment,omitempty" yaml:"fragment,omitempty"`
	Actions  []Action `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Static is a literal attribute.
type Static struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Attribute resolves a value from the source node.
type Attribute struct {
	Name string `json:"name" yaml:"name"`
	// Path relative to the source node, e.g. "tags.block_size" or "port.peer.-2".
	Path string `json:"path" yaml:"path"`
	// AllowMissing drops the attribute quietly when the path does not resolve.
	AllowMissing bool `json:"allow_missing,omitempty" yaml:"allow_missing,omitempty"`
	// Required makes a miss fatal. Only meaningful on containers.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// Computed derives a value with a registered function.
type Computed struct {
	Name     string   `json:"name" yaml:"name"`
	Func     string   `json:"func" yaml:"func"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
}

// Action derives one action count from counter names. A name may list
// alternatives ("a|b") and may be marked optional ("?a").
type Action struct {
	Name     string   `json:"name" yaml:"name"`
	Add      []string `json:"add" yaml:"add"`
	Subtract []string `json:"subtract,omitempty" yaml:"subtract,omitempty"`
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
}
