package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	State  string `json:"state"`
	Offset uint64 `json:"offset,omitempty"`
}

func TestMarshalToString(t *testing.T) {
	s, err := MarshalToString(sample{State: "Ended", Offset: 10})
	assert.Nil(t, err)
	assert.Equal(t, `{"state":"Ended","offset":10}`, s)

	var got sample
	assert.Nil(t, Unmarshal([]byte(s), &got))
	assert.Equal(t, sample{State: "Ended", Offset: 10}, got)

	s, err = MarshalToString(sample{State: "Idle"})
	assert.Nil(t, err)
	assert.Equal(t, `{"state":"Idle"}`, s)
	assert.NotEmpty(t, Name)
}
