package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRULExact(t *testing.T) {
	r := NewRUL(5)
	for i := 0; i < 4; i++ {
		r.Add(float64(i), 0.1*float64(i)+1)
		if got := r.Estimate(); got != -1 {
			t.Errorf("%d observations: expected no estimate. Got %v", r.Len(), got)
		}
	}
	for i := 4; i < 10; i++ {
		r.Add(float64(i), 0.1*float64(i)+1)
		// score reaches 5 at t = 40
		want := 40 - float64(i)
		if got := r.Estimate(); got < want-1e-9 || got > want+1e-9 {
			t.Errorf("t=%d: expected RUL %v. Got %v", i, want, got)
		}
	}
}

func TestRULSentinels(t *testing.T) {
	assert := assert.New(t)
	flat := NewRUL(5)
	falling := NewRUL(5)
	overdue := NewRUL(5)
	for i := 0; i < 10; i++ {
		flat.Add(float64(i), 1)
		falling.Add(float64(i), 10-float64(i))
		overdue.Add(float64(i), float64(i))
	}
	assert.Equal(-1.0, flat.Estimate())
	assert.Equal(-1.0, falling.Estimate())
	assert.Equal(0.0, overdue.Estimate())

	overdue.Reset()
	assert.Equal(0, overdue.Len())
	assert.Equal(-1.0, overdue.Estimate())
}
