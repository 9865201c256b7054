package models

// Element is implemented by every record the authorization engine can
// filter by identifier. ElementField returns the value of the named
// field ("name", "key", "id") or empty when the field does not apply.
type Element interface {
	ElementField(field string) string
}
