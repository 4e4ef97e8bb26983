package model

// EvaluationKind selects the comparison applied to a resolved document value.
// Unrecognized kinds are treated as EvalEquals by the evaluator.
type EvaluationKind string

const (
	EvalEquals   EvaluationKind = "equals"
	EvalExists   EvaluationKind = "exists"
	EvalBoolean  EvaluationKind = "boolean"
	EvalContains EvaluationKind = "contains"
	EvalRange    EvaluationKind = "range"
)

// Item is one tracked installation target. The configured order is
// significant: GUIIndex and the command channel address items by position.
type Item struct {
	ID          string `yaml:"id" json:"id"`
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	GUIIndex    int    `yaml:"gui_index,omitempty" json:"gui_index,omitempty"`

	// Paths are candidate locations checked in order; one hit is enough.
	Paths []string `yaml:"paths" json:"paths"`

	// PlistKey, when set, selects key-path validation over file existence.
	PlistKey      string         `yaml:"plist_key,omitempty" json:"plist_key,omitempty"`
	ExpectedValue string         `yaml:"expected_value,omitempty" json:"expected_value,omitempty"`
	Evaluation    EvaluationKind `yaml:"evaluation,omitempty" json:"evaluation,omitempty"`
}

// HasPath reports whether path is one of the item's candidate paths.
func (i Item) HasPath(path string) bool {
	for _, p := range i.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// PlistSource is a shared property list whose critical keys must all resolve
// to a success value for the items that reference it.
type PlistSource struct {
	Path          string   `yaml:"path" json:"path"`
	CriticalKeys  []string `yaml:"critical_keys,omitempty" json:"critical_keys,omitempty"`
	SuccessValues []string `yaml:"success_values,omitempty" json:"success_values,omitempty"`
}
