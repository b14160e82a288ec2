package cwidget

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestRangeInput(t *testing.T) {
	test.NewTempApp(t)

	var got []int
	input := NewRangeInput("JPEG quality", 80, 1, 100, func(v int) { got = append(got, v) })

	input.SetText("55")
	assert.Equal(t, 55, input.Value)
	assert.Equal(t, "JPEG quality: 55", input.labelWidget.Text)
	assert.True(t, input.errorWidget.Hidden)

	input.SetText("500")
	assert.Equal(t, 55, input.Value)
	assert.False(t, input.errorWidget.Hidden)
	assert.Equal(t, "must be between 1 and 100", input.errorWidget.Text)

	input.SetText("abc")
	assert.Equal(t, "not a whole number", input.errorWidget.Text)

	input.SetText("")
	assert.True(t, input.errorWidget.Hidden)

	assert.Equal(t, []int{55, 55}, got)
}
