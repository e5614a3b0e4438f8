package ports

// ImportPolicy decides which modules and search paths an interpreter may use.
type ImportPolicy interface {
	// CheckModule returns an error if the module may not be imported.
	CheckModule(name string) error

	// CheckPath returns an error if the directory may not be searched.
	CheckPath(path string) error
}

// DenialHandler is called when a policy check denies a request.
type DenialHandler interface {
	// OnDenial is called with kind "module" or "path", the denied subject
	// and a human-readable reason.
	OnDenial(kind, subject, reason string)
}
