package pipeline

import "context"

// Stage is one step of the screenshot-processing chain: preprocess, OCR,
// compose, clean, classify, extract entities, hash, rename, and index.
type Stage interface {
	Name() string
	Run(ctx context.Context, work *Work) error
}

// StageFunc adapts a plain function to the Stage interface for stages that
// don't need their own named type.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, work *Work) error
}

func (f StageFunc) Name() string { return f.StageName }

func (f StageFunc) Run(ctx context.Context, work *Work) error { return f.Fn(ctx, work) }
