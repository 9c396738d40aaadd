package browser

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	elems []Element
	err   error
}

func (f stubFinder) FindAll(context.Context, string) ([]Element, error) {
	return f.elems, f.err
}

type stubElement struct {
	Element
	name string
}

func TestFindOne_ReturnsFirstMatch(t *testing.T) {
	f := stubFinder{elems: []Element{stubElement{name: "a"}, stubElement{name: "b"}}}

	el, err := FindOne(context.Background(), f, ".x")

	require.NoError(t, err)
	assert.Equal(t, "a", el.(stubElement).name)
}

func TestFindOne_NoMatchIsNotFound(t *testing.T) {
	_, err := FindOne(context.Background(), stubFinder{}, ".byline")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsStale(err))
	assert.Contains(t, err.Error(), ".byline")
}

func TestFindOne_PropagatesQueryError(t *testing.T) {
	queryErr := errors.New("boom")

	_, err := FindOne(context.Background(), stubFinder{err: queryErr}, ".x")

	assert.ErrorIs(t, err, queryErr)
	assert.False(t, IsNotFound(err))
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"json number", float64(1200), 1200, true},
		{"fractional offset", 512.75, 512, true},
		{"int64", int64(42), 42, true},
		{"int", 7, 7, true},
		{"nan", math.NaN(), 0, false},
		{"nil", nil, 0, false},
		{"string", "100", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyNodeErr(t *testing.T) {
	assert.NoError(t, classifyNodeErr(nil, "read"))

	stale := classifyNodeErr(errors.New("No node with given id found (-32000)"), "read text")
	assert.True(t, IsStale(stale))

	timedOut := classifyNodeErr(context.DeadlineExceeded, "read text")
	assert.True(t, IsStale(timedOut), "an unresolvable node id times out")

	gone := classifyNodeErr(errors.New("websocket: close 1006"), "click")
	assert.True(t, IsSessionFailure(gone))
}

func TestClassifyErr(t *testing.T) {
	assert.NoError(t, classifyErr(nil, "query"))

	assert.True(t, IsSessionFailure(classifyErr(context.Canceled, "query")))
	assert.True(t, IsSessionFailure(classifyErr(errors.New("invalid context"), "query")))

	other := classifyErr(errors.New("SyntaxError: unexpected token"), "evaluate script")
	assert.False(t, IsSessionFailure(other))
	assert.False(t, IsStale(other))
	assert.Contains(t, other.Error(), "evaluate script")
}

func TestNewChromeOpener_FillsDefaults(t *testing.T) {
	o := NewChromeOpener(Options{Headless: true})

	assert.Equal(t, DefaultActionTimeout, o.opts.ActionTimeout)
	assert.Equal(t, DefaultElementTimeout, o.opts.ElementTimeout)
	assert.Equal(t, DefaultWindowWidth, o.opts.WindowWidth)
	assert.Equal(t, DefaultWindowHeight, o.opts.WindowHeight)
}

func TestAllocatorOptions_IncludeExecPathAndUserAgent(t *testing.T) {
	base := DefaultOptions()
	withExtras := base
	withExtras.ExecPath = "/opt/chrome/chrome"
	withExtras.UserAgent = "newsgrab-test"

	assert.Len(t, withExtras.allocatorOptions(), len(base.allocatorOptions())+2)
}
