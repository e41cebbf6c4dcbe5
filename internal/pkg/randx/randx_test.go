package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDIsValid(t *testing.T) {
	id := NewID()
	assert.Len(t, id, IDLength)
	assert.True(t, IsValidID(id))
}

func TestIsValidIDRejectsOtherShapes(t *testing.T) {
	id := NewID()

	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID(strings.ToUpper(id)))
	assert.False(t, IsValidID(strings.ReplaceAll(id, "-", "")))
	assert.False(t, IsValidID(id+id))
	assert.False(t, IsValidID("urn:uuid:"+id))
}

func TestIntnStaysInRange(t *testing.T) {
	for range 200 {
		v := Intn(3)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 3)
	}
}

func TestAvatar(t *testing.T) {
	assert.True(t, strings.HasPrefix(Avatar(), "/avatar/"))
}
