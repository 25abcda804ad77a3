package enums

// ModelStatus maps to the model_status enum in Postgres. Models are never
// hard-deleted, only flagged inactive.
type ModelStatus string

const (
	ModelActive   ModelStatus = "active"
	ModelInactive ModelStatus = "inactive"
)

// IsValid reports whether the value matches the canonical model_status enum.
func (s ModelStatus) IsValid() bool {
	return s == ModelActive || s == ModelInactive
}

func (s ModelStatus) String() string { return string(s) }

// Matcher names which stage of the matching engine produced a result.
type Matcher string

const (
	MatcherGTIN      Matcher = "gtin"
	MatcherMPN       Matcher = "mpn"
	MatcherComposite Matcher = "composite"
	MatcherInference Matcher = "inference"
	MatcherNone      Matcher = "none"
)

func (m Matcher) String() string { return string(m) }

// PersistAction describes what a persist call did with a record.
type PersistAction string

const (
	ActionCreated PersistAction = "created"
	ActionUpdated PersistAction = "updated"
	ActionMatched PersistAction = "matched"
)

func (a PersistAction) String() string { return string(a) }
