package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Token string `json:"token" validate:"required,len=32,hexadecimal"`
	Name  string `json:"name,omitempty" validate:"max=5"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&sample{Token: "0123456789abcdef0123456789abcdef"}))

	err := Struct(sample{Token: "xyz", Name: "too long"})
	assert.EqualError(t, err, "token len; name max")

	err = Struct(&sample{Token: "0123456789abcdef0123456789abcdeg"})
	assert.EqualError(t, err, "token hexadecimal")

	assert.Error(t, Struct(nil))
	assert.Error(t, Struct("not a struct"))
}
