package ir

// This file implements the staged, type-state entry point to Builder
// construction: Build() -> WithInputs -> WithOutputs -> optional
// DeclareVariables -> Body(), each stage returning a distinct type so a
// caller cannot, say, declare variables before fixing outputs.

// SignatureBuilder is the entry point returned by Build.
type SignatureBuilder struct{}

// Build begins constructing a new Function.
func Build() *SignatureBuilder { return &SignatureBuilder{} }

// WithInputs fixes the function's parameter types.
func (s *SignatureBuilder) WithInputs(types ...Type) *OutputsBuilder {
	return &OutputsBuilder{inputs: append([]Type(nil), types...)}
}

// OutputsBuilder is returned by WithInputs.
type OutputsBuilder struct {
	inputs []Type
}

// WithOutputs fixes the function's result types.
func (o *OutputsBuilder) WithOutputs(types ...Type) *VarsBuilder {
	return &VarsBuilder{
		inputs:  o.inputs,
		outputs: append([]Type(nil), types...),
		vars:    NewVariableTranslator(),
	}
}

// VarsBuilder is returned by WithOutputs; it is also the stage at which
// source-language variables are declared, zero or more times, before
// entering the body.
type VarsBuilder struct {
	inputs  []Type
	outputs []Type
	vars    *VariableTranslator
}

// DeclareVariables allocates n fresh contiguous Variable handles of type ty,
// returning the first. May be called any number of times before Body.
func (v *VarsBuilder) DeclareVariables(n int, ty Type) (Variable, *Error) {
	return v.vars.DeclareVariables(n, ty)
}

// Body finalizes the signature and variable declarations and returns the
// Builder, positioned at the entry block, ready to emit instructions.
func (v *VarsBuilder) Body() *Builder {
	return newBuilder(v.inputs, v.outputs, v.vars)
}
