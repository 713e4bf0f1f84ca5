package model

// DiscardSink drops every diagnostic.
type DiscardSink struct{}

func (DiscardSink) Info(string, ...any)  {}
func (DiscardSink) Warn(string, ...any)  {}
func (DiscardSink) Error(string, ...any) {}
