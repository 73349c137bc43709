package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modware/udfhost/pkg/wire"
)

func formSignatures() []wire.FunctionSignature {
	return []wire.FunctionSignature{
		{Name: "can_drive", Params: []wire.Kind{wire.KindInt64}, Returns: wire.KindBool},
		{Name: "ping", Params: nil, Returns: wire.KindUnit},
	}
}

func keyPress(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)

	return next
}

func TestCallFormInitialState(t *testing.T) {
	model := newCallFormModel(formSignatures())

	if len(model.fields) != 1 {
		t.Fatalf("expected 1 field before function selection, got %d", len(model.fields))
	}
	if model.fields[0].fieldType != fieldTypeRadio {
		t.Error("function field must be a radio selection")
	}
	if len(model.fields[0].options) != 2 {
		t.Errorf("expected 2 function options, got %d", len(model.fields[0].options))
	}
}

func TestCallFormComposesInvocation(t *testing.T) {
	var m tea.Model = newCallFormModel(formSignatures())

	// Select can_drive and type an age.
	m = keyPress(m, "enter")
	m = keyPress(m, "2")
	m = keyPress(m, "1")
	m = keyPress(m, "enter")

	final := m.(callFormModel)
	if !final.done {
		t.Fatal("form should be done after the last argument")
	}
	if final.function != "can_drive" {
		t.Errorf("expected function can_drive, got %s", final.function)
	}
	if len(final.args) != 1 || !final.args[0].Equal(wire.Int64(21)) {
		t.Errorf("unexpected arguments: %v", final.args)
	}
}

func TestCallFormZeroArgFunction(t *testing.T) {
	var m tea.Model = newCallFormModel(formSignatures())

	m = keyPress(m, "down")
	m = keyPress(m, "enter")

	final := m.(callFormModel)
	if !final.done {
		t.Fatal("zero-argument function should complete immediately")
	}
	if final.function != "ping" {
		t.Errorf("expected function ping, got %s", final.function)
	}
	if len(final.args) != 0 {
		t.Errorf("expected no arguments, got %v", final.args)
	}
}

func TestCallFormRejectsInvalidArgument(t *testing.T) {
	var m tea.Model = newCallFormModel(formSignatures())

	m = keyPress(m, "enter")
	m = keyPress(m, "x")
	m = keyPress(m, "enter")

	mid := m.(callFormModel)
	if mid.done {
		t.Fatal("form must not complete on an invalid argument")
	}
	if mid.errText == "" {
		t.Error("invalid argument should surface an error message")
	}

	// Correct the value and confirm.
	m = keyPress(m, "backspace")
	m = keyPress(m, "1")
	m = keyPress(m, "9")
	m = keyPress(m, "enter")

	final := m.(callFormModel)
	if !final.done || !final.args[0].Equal(wire.Int64(19)) {
		t.Errorf("corrected argument should complete the form: %+v", final.args)
	}
}

func TestCallFormCancel(t *testing.T) {
	var m tea.Model = newCallFormModel(formSignatures())

	m = keyPress(m, "ctrl+c")

	final := m.(callFormModel)
	if !final.cancelled {
		t.Error("ctrl+c must cancel the form")
	}
}
