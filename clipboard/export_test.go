package clipboard

// NewWithWriter returns a System copying through write.
func NewWithWriter(write func(string) error) *System {
	return &System{write: write}
}
