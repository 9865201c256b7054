package models

// DefaultEnvironment is the implicit environment every domain carries. It
// cannot be deleted and is the fallback target when an entity has no entry
// for the requested environment.
const DefaultEnvironment = "default"

// ActivationMap is a sparse environment -> activated map. A missing key is
// not the same as false: resolution falls back to the default environment,
// so presence must be probed with Has before reading the value.
type ActivationMap map[string]bool

// Has reports whether the environment has an explicit entry.
func (m ActivationMap) Has(environment string) bool {
	_, ok := m[environment]
	return ok
}

// IsActivated resolves the effective activation for the environment,
// falling back to the default environment when no entry exists.
func (m ActivationMap) IsActivated(environment string) bool {
	if value, ok := m[environment]; ok {
		return value
	}
	return m[DefaultEnvironment]
}

// IsActivatedExplicitly reports true only when the environment has its own
// entry set to true. Used for strategies, where a strategy document not
// configured for an environment is skipped rather than enforced.
func (m ActivationMap) IsActivatedExplicitly(environment string) bool {
	value, ok := m[environment]
	return ok && value
}
