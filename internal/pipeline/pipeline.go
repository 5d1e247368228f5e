// Package pipeline runs a require request through its stages.
package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. It stops at the first processor that leaves
// an error on the context.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx.Enter(processor.Stage())
		ctx = processor.Process(ctx)
		if ctx.Err != nil {
			ctx.Err = &StageError{Stage: ctx.Stage, NS: ctx.NSName(), Err: ctx.Err}
			return ctx
		}
	}
	return ctx
}
