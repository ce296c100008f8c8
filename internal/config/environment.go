package config

import "fmt"

// Environment selects which vendor endpoints an adapter talks to.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Test        Environment = "test"
)

// ParseEnvironment accepts production, development or test. An empty value
// means development.
func ParseEnvironment(s string) (Environment, error) {
	switch env := Environment(s); env {
	case "":
		return Development, nil
	case Production, Development, Test:
		return env, nil
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// Sandbox reports whether the vendor sandbox should be used.
func (e Environment) Sandbox() bool { return e != Production }
