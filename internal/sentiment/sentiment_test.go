package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVaderPolarity(t *testing.T) {
	v := NewVader()

	assert.Less(t, v.Compound("I am scared, he is hurting me, this is horrible and terrible"), -0.5)
	assert.Greater(t, v.Compound("Thanks, that was a great and lovely ride"), 0.5)
	assert.InDelta(t, 0, v.Compound("the order number is four five six"), 0.05)
}

func TestFixed(t *testing.T) {
	assert.Equal(t, -0.7, Fixed(-0.7).Compound("anything"))
}
