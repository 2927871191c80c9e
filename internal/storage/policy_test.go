package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstraints_Validate(t *testing.T) {
	c := Constraints{
		AcceptedTypes: []string{"image/*", "application/pdf"},
		MaxSize:       1024,
	}

	assert.NoError(t, c.Validate("photo.png", "image/png", 512))
	assert.NoError(t, c.Validate("doc.pdf", "application/pdf", 1024))

	assert.Error(t, c.Validate("big.png", "image/png", 2048))
	assert.Error(t, c.Validate("virus.exe", "application/octet-stream", 10))
}

func TestConstraints_WildcardAndParams(t *testing.T) {
	c := Constraints{AcceptedTypes: []string{"image/*"}}

	assert.NoError(t, c.Validate("a.jpg", "image/jpeg; charset=binary", 1))
	assert.Error(t, c.Validate("a.txt", "text/plain", 1))
}

func TestConstraints_Empty(t *testing.T) {
	var c Constraints
	assert.NoError(t, c.Validate("anything.bin", "application/octet-stream", 1<<30))
}
