package verr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veldt-lang/veldt/frontend/ast"
	"github.com/veldt-lang/veldt/frontend/verr"
)

func TestWithOnNilReceiver(t *testing.T) {
	var r *verr.Errors
	r = r.With(verr.New(verr.NewGeneric{Positioner: ast.Range{}, Message: "boom"}))
	require.True(t, r.HasError())
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, verr.Generic, r.Errors()[0].Code())
}

func TestNilReceiverHasNoErrors(t *testing.T) {
	var r *verr.Errors
	assert.False(t, r.HasError())
	assert.Empty(t, r.Errors())
}

func TestMerge(t *testing.T) {
	left := (&verr.Errors{}).With(verr.New(verr.NewCodeTooComplex{Positioner: ast.Range{}}))
	right := (&verr.Errors{}).With(
		verr.New(verr.NewUnknownRequire{Positioner: ast.Range{}, ModuleName: "m"}),
	)
	merged := left.Merge(right)
	require.Len(t, merged.Errors(), 2)
	assert.Equal(t, verr.CodeTooComplex, merged.Errors()[0].Code())
	assert.Equal(t, verr.UnknownRequire, merged.Errors()[1].Code())

	assert.Same(t, merged, merged.Merge(nil))
	var empty *verr.Errors
	assert.Same(t, merged, empty.Merge(merged))
}

func TestFormatWithCode(t *testing.T) {
	e := verr.New(verr.NewGeneric{Positioner: ast.Range{}, Message: "boom"})
	assert.Contains(t, verr.FormatWithCode(e), "(E003) boom")
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  verr.VeldtError
		want string
	}{
		{verr.NewUnknownSymbol{Name: "x"}, "key 'x' not found"},
		{verr.NewUnknownSymbol{Name: "x", In: "{ }"}, "key 'x' not found in { }"},
		{verr.NewOccursCheckFailed{Sub: "t1", Super: "t2"}, "type 't1' could not be converted into 't2': occurs check failed"},
		{verr.NewUnknownRequire{ModuleName: "m"}, "unknown require: m"},
		{verr.NewIllegalRequire{ModuleName: "m", Reason: "nope"}, "cannot require module m: nope"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.Error())
	}
}
