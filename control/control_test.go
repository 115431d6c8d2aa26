package control

import (
	"testing"

	"github.com/idlib/pipe"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestShutdown(t *testing.T) {
	m := Shutdown()
	assert.Equal(t, m.Length(), 5)
	assert.Check(t, is.DeepEqual(m.Bytes(), []byte("shizu")))
	assert.Check(t, IsShutdown(m))
	assert.Equal(t, Classify(m), KindShutdown)
}

func TestShutdownIsFreshCopy(t *testing.T) {
	a := Shutdown()
	b := a.Bytes()
	b[0] = 'x'
	assert.Check(t, IsShutdown(Shutdown()))
	assert.Check(t, IsShutdown(a))
}

func TestClassifyUnknown(t *testing.T) {
	cases := [][]byte{
		[]byte("abcde"),
		[]byte("shiz"),
		[]byte("shizuu"),
		[]byte("SHIZU"),
		{},
	}
	for _, body := range cases {
		m := pipe.NewMessage(body)
		assert.Check(t, !IsShutdown(m), "body %q", body)
		assert.Equal(t, Classify(m), KindUnknown)
	}
}

func TestIsShutdownNil(t *testing.T) {
	assert.Check(t, !IsShutdown(nil))
	assert.Equal(t, Classify(nil), KindUnknown)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, KindShutdown.String(), "shutdown")
	assert.Equal(t, KindUnknown.String(), "unknown")
}
