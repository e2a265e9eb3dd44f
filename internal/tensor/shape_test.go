package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 6, Shape{2, 3}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{2, 3}.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
	assert.Error(t, Shape{-1}.Validate())
}

func TestShape_WithBatch(t *testing.T) {
	s := Shape{3, 4}
	assert.Equal(t, Shape{8, 3, 4}, s.WithBatch(8))
	assert.Equal(t, Shape{3, 4}, s, "receiver must not change")
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Shape
		want    Shape
		wantErr bool
	}{
		{"same", Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false},
		{"row vector", Shape{4, 3}, Shape{3}, Shape{4, 3}, false},
		{"column", Shape{4, 1}, Shape{1, 5}, Shape{4, 5}, false},
		{"incompatible", Shape{4, 3}, Shape{2}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
