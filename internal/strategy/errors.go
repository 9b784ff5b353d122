package strategy

import "fmt"

// ParseError reports a decider response that was not well-formed JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing strategy decision %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnknownStrategyError reports a strategy value outside the enumeration.
type UnknownStrategyError struct {
	Value string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q", e.Value)
}
