package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Params{Page: 0, PerPage: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPerPage, p.PerPage)

	p = Params{Page: 3, PerPage: 0}
	p.Normalize()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 2*DefaultPerPage, p.Offset())
}

func TestNew(t *testing.T) {
	pg := New(Params{Page: 2, PerPage: 10}, 25)
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext)
	assert.True(t, pg.HasPrev)

	pg = New(Params{Page: 1, PerPage: 10}, 0)
	assert.Equal(t, 0, pg.TotalPages)
	assert.False(t, pg.HasNext)
	assert.False(t, pg.HasPrev)
}

func TestNewResultNeverNil(t *testing.T) {
	r := NewResult[int](nil, New(Default(), 0))
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
}
