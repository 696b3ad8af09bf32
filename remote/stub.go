package remote

import "context"

// StubSource answers every call with an empty success.
type StubSource struct{}

// NewStubSource returns the inert source.
func NewStubSource() *StubSource { return &StubSource{} }

func (StubSource) SelectAll(context.Context, string) ([]Record, error) { return nil, nil }

func (StubSource) SelectOne(context.Context, string, string) (Record, error) { return nil, nil }

func (StubSource) Insert(context.Context, string, Record) (Record, error) { return nil, nil }

func (StubSource) Update(context.Context, string, string, Record) error { return nil }

func (StubSource) Delete(context.Context, string, string) error { return nil }
