package train

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	data := twoClassData(t, 40, 1)

	train, test, err := Split(data, 0.25, rand.New(rand.NewPCG(2, 2)))
	require.NoError(t, err)
	assert.Equal(t, 30, train.Len())
	assert.Equal(t, 10, test.Len())
	assert.Equal(t, tensor.Shape{10, 2}, test.X.Shape())
	assert.Equal(t, tensor.Shape{10}, test.Y.Shape())

	// No sample is lost or duplicated.
	assert.InDelta(t, data.X.Sum(), train.X.Sum()+test.X.Sum(), 1e-9)

	same, empty, err := Split(data, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 40, same.Len())
	assert.Equal(t, 0, empty.Len())

	_, _, err = Split(data, 1, nil)
	assert.Error(t, err)
}

func TestDataset_Validate(t *testing.T) {
	assert.Error(t, Dataset{}.Validate())
	bad := Dataset{X: tensor.Zeros(tensor.Shape{4, 2}), Y: tensor.Zeros(tensor.Shape{3})}
	assert.Error(t, bad.Validate())
}
