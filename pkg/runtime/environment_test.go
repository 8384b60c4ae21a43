package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackShadowing(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Define("x", num(1)))

	s.Push()
	require.NoError(t, s.Define("x", num(2)))
	got, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, num(2), got)
	s.Pop()

	got, ok = s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, num(1), got)
}

func TestStackConflictsAcrossMaps(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Declare("f", &FunctionValue{Name: "f"}))

	err := s.Define("f", num(1))
	require.Error(t, err)
	assert.True(t, IsKind(err, ConflictWithPreviousDeclaration))

	err = s.Declare("f", &FunctionValue{Name: "f"})
	assert.True(t, IsKind(err, ConflictWithPreviousDeclaration))

	require.NoError(t, s.Define("v", num(1)))
	err = s.Declare("v", &FunctionValue{Name: "v"})
	assert.True(t, IsKind(err, ConflictWithPreviousDeclaration))
}

func TestStackLookupPrefersNearestScope(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Define("f", num(1)))
	s.Push()
	fn := &FunctionValue{Name: "f"}
	require.NoError(t, s.Declare("f", fn))

	got, ok := s.Lookup("f")
	require.True(t, ok)
	assert.Same(t, fn, got)

	_, ok = s.LookupBinding("f")
	assert.False(t, ok, "a nearer declaration hides the outer variable")
}

func TestStackForkSharesScopes(t *testing.T) {
	s := NewStack()
	fork := s.Fork()

	require.NoError(t, s.Define("late", str("seen")))
	got, ok := fork.Lookup("late")
	require.True(t, ok)
	assert.Equal(t, str("seen"), got)

	fork.Push()
	require.NoError(t, fork.Define("local", num(1)))
	assert.Equal(t, 1, s.Depth())
	_, ok = s.Lookup("local")
	assert.False(t, ok)
}

func TestBindingCellsAreShared(t *testing.T) {
	s := NewStack()
	cell := &Binding{Value: num(1)}
	require.NoError(t, s.DefineBinding("x", cell))

	binding, ok := s.LookupBinding("x")
	require.True(t, ok)
	binding.Value = num(5)
	assert.Equal(t, num(5), cell.Value)
	assert.Equal(t, []string{"x"}, s.Names())
}
