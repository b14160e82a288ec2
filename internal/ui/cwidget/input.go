package cwidget

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Input is a labelled entry that only reports values its Validator accepts.
// The label shows the value currently in effect.
type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText   string
	Placeholder string

	Value T

	OnChanged func(T)

	Validator func(string) (T, error)
	Format    func(T) string
}

func newInput[T any](label, placeholder string, value T, format func(T) string) *Input[T] {
	input := &Input[T]{
		LabelText:   label,
		Placeholder: placeholder,
		Value:       value,
		Format:      format,
	}

	input.labelWidget = widget.NewLabel("")
	input.labelWidget.TextStyle = fyne.TextStyle{Bold: true}
	input.refreshLabel()

	input.entryWidget = widget.NewEntry()
	input.entryWidget.SetPlaceHolder(placeholder)

	input.errorWidget = widget.NewLabel("")
	input.errorWidget.Hidden = true
	input.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	input.errorWidget.Importance = widget.DangerImportance

	input.entryWidget.OnChanged = func(s string) {
		if input.Validator == nil {
			return
		}

		res, err := input.Validator(s)
		input.SetError(err)
		if err != nil {
			return
		}

		input.Value = res
		input.refreshLabel()

		if input.OnChanged != nil {
			input.OnChanged(res)
		}
	}

	input.ExtendBaseWidget(input)

	return input
}

// NewRangeInput accepts integers in [min, max]. An empty entry keeps the
// current value.
func NewRangeInput(label string, value, min, max int, onChanged func(int)) *Input[int] {
	input := newInput(label, fmt.Sprintf("%d-%d", min, max), value, strconv.Itoa)
	input.OnChanged = onChanged

	input.Validator = func(s string) (int, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return input.Value, nil
		}

		res, err := strconv.Atoi(s)
		if err != nil {
			return input.Value, fmt.Errorf("not a whole number")
		}
		if res < min || res > max {
			return input.Value, fmt.Errorf("must be between %d and %d", min, max)
		}

		return res, nil
	}

	return input
}

func (item *Input[T]) refreshLabel() {
	item.labelWidget.SetText(fmt.Sprintf("%s: %s", item.LabelText, item.Format(item.Value)))
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)

	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
	item.errorWidget.Refresh()
}

func (item *Input[T]) SetText(text string) {
	item.entryWidget.SetText(text)
}
