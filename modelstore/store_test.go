package modelstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/semmodel/modelext"
)

func TestKey(t *testing.T) {
	tests := []struct {
		kind modelext.Kind
		name string
		want string
	}{
		{modelext.KindForm, "_visi:int", "form._visi/int"},
		{modelext.KindProp, "_visi:int:tick", "prop._visi/int/tick"},
		{modelext.KindUniv, "._beep", "univ._beep"},
		{modelext.KindUniv, "_woot:_stuff", "univ._woot/_stuff"},
		{modelext.KindTagProp, "some.score", "tagprop.some.score"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.kind, tt.name))
	}
}

func TestKey_MatchesRecordKey(t *testing.T) {
	rec := modelext.Record{Kind: modelext.KindProp, Form: "_visi:int", Name: "tick"}
	assert.Equal(t, "prop._visi/int/tick", Key(rec.Kind, rec.Key()))

	univ := modelext.Record{Kind: modelext.KindUniv, Name: "._beep"}
	assert.Equal(t, "univ._beep", Key(univ.Kind, univ.Key()))
}
