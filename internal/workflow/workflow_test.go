package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, []string{"todo", "in-progress", "review", "done"}, Default())
	assert.Equal(t, "done", Terminal(Default()))
	assert.Equal(t, "", Terminal(nil))
}

func TestAdd(t *testing.T) {
	steps := []string{"Backlog", "Doing"}

	out, err := Add(steps, "Done")
	require.NoError(t, err)
	assert.Equal(t, []string{"Backlog", "Doing", "Done"}, out)
	// input untouched
	assert.Equal(t, []string{"Backlog", "Doing"}, steps)

	_, err = Add(steps, "Doing")
	assert.ErrorContains(t, err, "40005")

	// case-sensitive: "doing" is a different name
	out, err = Add(steps, "doing")
	require.NoError(t, err)
	assert.Contains(t, out, "doing")

	_, err = Add(steps, "")
	assert.ErrorContains(t, err, "40001")
}

func TestRemove(t *testing.T) {
	steps := []string{"Backlog", "Doing", "Done"}

	out, err := Remove(steps, "Doing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Backlog", "Done"}, out)

	_, err = Remove(steps, "Blocked")
	assert.ErrorContains(t, err, "40406")

	_, err = Remove([]string{"only"}, "only")
	assert.ErrorContains(t, err, "40002")
}

func TestReorder(t *testing.T) {
	steps := []string{"a", "b", "c"}

	out, err := Reorder(steps, "b", DirUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, out)

	out, err = Reorder(steps, "b", DirDown)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, out)

	// boundary is a no-op
	out, err = Reorder(steps, "a", DirUp)
	require.NoError(t, err)
	assert.Equal(t, steps, out)

	out, err = Reorder(steps, "c", DirDown)
	require.NoError(t, err)
	assert.Equal(t, steps, out)

	_, err = Reorder(steps, "x", DirUp)
	assert.ErrorContains(t, err, "40406")

	_, err = Reorder(steps, "a", "sideways")
	assert.ErrorContains(t, err, "40001")
}

func TestReplace(t *testing.T) {
	out, err := Replace([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out)

	_, err = Replace(nil)
	assert.ErrorContains(t, err, "40001")

	_, err = Replace([]string{"x", ""})
	assert.ErrorContains(t, err, "40001")

	_, err = Replace([]string{"x", "x"})
	assert.ErrorContains(t, err, "40005")
}
