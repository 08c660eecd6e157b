package dataset

// Role is the semantic classification of a column. Currency, Text and
// Unclassified are the hints a caller may declare; the remaining roles are
// only ever produced by inference.
type Role string

const (
	RoleUnclassified Role = "unclassified"
	RoleCurrency     Role = "currency"
	RoleText         Role = "text"
	RoleDate         Role = "date"
	RoleCategorical  Role = "categorical"
	RoleNumeric      Role = "numeric"
	RoleString       Role = "string"
)

// MissingLabel is the selectable placeholder that stands in for a missing
// cell in filter options and filter selections. A present cell whose text is
// "(vazio)" is offered as `\(vazio)` instead (see EscapeKey).
const MissingLabel = "(vazio)"

// IsNumeric reports whether the column stores float64 values.
func (r Role) IsNumeric() bool {
	return r == RoleCurrency || r == RoleNumeric
}

// IsTextual reports whether the column stores canonical strings.
func (r Role) IsTextual() bool {
	return r == RoleText || r == RoleCategorical || r == RoleString
}

// IsValid reports whether r is a resolved role a typed column may carry.
func (r Role) IsValid() bool {
	switch r {
	case RoleCurrency, RoleText, RoleDate, RoleCategorical, RoleNumeric, RoleString:
		return true
	}
	return false
}
