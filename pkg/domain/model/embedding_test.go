package model_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.3, 0.4, 0.5}
		sim := model.CosineSimilarity(v, v)
		gt.Bool(t, math.Abs(sim-1.0) < 1e-9).True()
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		gt.Value(t, model.CosineSimilarity(a, b)).Equal(0)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		a := []float32{1, 2}
		b := []float32{-1, -2}
		sim := model.CosineSimilarity(a, b)
		gt.Bool(t, math.Abs(sim+1.0) < 1e-9).True()
	})

	t.Run("mismatched lengths return zero", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{1, 2}
		gt.Value(t, model.CosineSimilarity(a, b)).Equal(0)
	})

	t.Run("zero vector returns zero", func(t *testing.T) {
		a := []float32{0, 0}
		b := []float32{1, 1}
		gt.Value(t, model.CosineSimilarity(a, b)).Equal(0)
	})
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0}

	gt.Bool(t, model.CosineDistance(a, a) < 1e-9).True()
	gt.Bool(t, math.Abs(model.CosineDistance(a, []float32{0, 1})-1.0) < 1e-9).True()
	gt.Bool(t, math.Abs(model.CosineDistance(a, []float32{-1, 0})-2.0) < 1e-9).True()
}
