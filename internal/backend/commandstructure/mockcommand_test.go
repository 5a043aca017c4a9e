package commandstructure

// mockCommand records how often it ran and delegates to executeFunc.
type mockCommand struct {
	name        string
	calls       int
	executeFunc func([]byte) ([]byte, error)
}

func (m *mockCommand) Name() string {
	return m.name
}

func (m *mockCommand) Execute(imageData []byte) ([]byte, error) {
	m.calls++
	if m.executeFunc == nil {
		return imageData, nil
	}
	return m.executeFunc(imageData)
}

// newMockCommand passes its input through unchanged.
func newMockCommand(name string) *mockCommand {
	return &mockCommand{name: name}
}

func newMockCommandWithError(name string, err error) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func([]byte) ([]byte, error) {
			return nil, err
		},
	}
}
