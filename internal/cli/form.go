package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modware/udfhost/pkg/wire"
)

const (
	fieldTypeRadio = iota
	fieldTypeText
)

type option struct {
	value       string
	description string
}

type fieldConfig struct {
	name        string
	description string
	fieldType   int
	options     []option // For radio fields.
	selected    int      // For radio fields.
	textValue   string   // For text fields.
	kind        wire.Kind // Expected kind for text fields.
}

type callFormModel struct {
	sigs         []wire.FunctionSignature
	currentField int
	fields       []fieldConfig
	function     string
	args         []wire.Value
	errText      string
	done         bool
	cancelled    bool
}

// newCallFormModel creates a TUI model for composing an invocation against
// the given signature table.
func newCallFormModel(sigs []wire.FunctionSignature) callFormModel {
	options := make([]option, len(sigs))
	for i, sig := range sigs {
		options[i] = option{value: sig.Name, description: sig.String()}
	}

	return callFormModel{
		sigs: sigs,
		fields: []fieldConfig{
			{
				name:        "Function",
				description: "Exported function to invoke",
				fieldType:   fieldTypeRadio,
				options:     options,
			},
		},
	}
}

// Init initializes the model.
func (m callFormModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m callFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		currentField := &m.fields[m.currentField]

		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true

			return m, tea.Quit
		case "enter":
			return m.confirmField()
		case "tab":
			if m.currentField < len(m.fields)-1 {
				m.currentField++
				m.errText = ""
			}
		case "shift+tab":
			if m.currentField > 0 {
				m.currentField--
				m.errText = ""
			}
		case "up", "ctrl+p":
			if currentField.fieldType == fieldTypeRadio && currentField.selected > 0 {
				currentField.selected--
			}
		case "down", "ctrl+n":
			if currentField.fieldType == fieldTypeRadio {
				if currentField.selected < len(currentField.options)-1 {
					currentField.selected++
				}
			}
		case "backspace":
			if currentField.fieldType == fieldTypeText && len(currentField.textValue) > 0 {
				currentField.textValue = currentField.textValue[:len(currentField.textValue)-1]
			}
		default:
			if currentField.fieldType == fieldTypeText && len(msg.String()) == 1 {
				if char := msg.String()[0]; char >= 32 && char <= 126 {
					currentField.textValue += string(char)
				}
			}
		}
	}

	return m, nil
}

// confirmField validates the current field and advances the form.
func (m callFormModel) confirmField() (tea.Model, tea.Cmd) {
	if m.currentField == 0 {
		// Function chosen, rebuild the argument fields for it.
		sig := m.sigs[m.fields[0].selected]
		m.function = sig.Name
		m.fields = m.fields[:1]
		for i, kind := range sig.Params {
			m.fields = append(m.fields, fieldConfig{
				name:        fmt.Sprintf("Argument %d", i+1),
				description: argumentHint(kind),
				fieldType:   fieldTypeText,
				kind:        kind,
			})
		}
		if len(sig.Params) == 0 {
			m.args = nil
			m.done = true

			return m, tea.Quit
		}
		m.currentField = 1
		m.errText = ""

		return m, nil
	}

	// Validate the current argument before moving on.
	field := m.fields[m.currentField]
	if _, err := ParseArg(field.kind, field.textValue); err != nil {
		m.errText = err.Error()

		return m, nil
	}
	m.errText = ""

	if m.currentField >= len(m.fields)-1 {
		args := make([]wire.Value, 0, len(m.fields)-1)
		for _, f := range m.fields[1:] {
			v, err := ParseArg(f.kind, f.textValue)
			if err != nil {
				m.errText = err.Error()

				return m, nil
			}
			args = append(args, v)
		}
		m.args = args
		m.done = true

		return m, tea.Quit
	}
	m.currentField++

	return m, nil
}

// argumentHint describes how a kind is entered in the form.
func argumentHint(kind wire.Kind) string {
	switch kind {
	case wire.KindBool:
		return "bool (true or false)"
	case wire.KindInt64:
		return "integer"
	case wire.KindFloat64:
		return "float"
	case wire.KindString:
		return "string"
	case wire.KindBytes:
		return "bytes (hex encoded)"
	case wire.KindArray:
		return "array (JSON)"
	case wire.KindMap:
		return "map (JSON object)"
	default:
		return kind.String()
	}
}

// View renders the current state of the model.
func (m callFormModel) View() string {
	if m.done {
		return fmt.Sprintf("Invoking %s...\n", m.function)
	}

	if m.cancelled {
		return "Operation cancelled.\n"
	}

	s := "Compose Invocation\n"
	s += strings.Repeat("=", 50) + "\n\n"

	s += fmt.Sprintf("Field %d of %d\n\n", m.currentField+1, len(m.fields))

	currentField := m.fields[m.currentField]
	s += fmt.Sprintf("▶ %s: %s\n\n", currentField.name, currentField.description)

	if currentField.fieldType == fieldTypeRadio {
		for j, option := range currentField.options {
			selector := "  ○ "
			if j == currentField.selected {
				selector = "  ● "
			}
			s += fmt.Sprintf("%s%s\n", selector, option.description)
		}
	} else {
		s += fmt.Sprintf("  [ %s ]\n", currentField.textValue)
	}

	if m.errText != "" {
		s += fmt.Sprintf("\n  ! %s\n", m.errText)
	}

	s += "\n"

	if m.currentField > 0 {
		s += fmt.Sprintf("Function: %s\n", m.function)
		for i := 1; i < m.currentField; i++ {
			s += fmt.Sprintf("  %s: %s\n", m.fields[i].name, m.fields[i].textValue)
		}
		s += "\n"
	}

	s += "Navigation:\n"
	if currentField.fieldType == fieldTypeRadio {
		s += "  ↑/↓: Select function\n"
	} else {
		s += "  Type the value, Backspace to delete\n"
	}
	s += "  Tab/Shift+Tab: Next/Previous field\n"
	s += "  Enter: Confirm and continue\n"
	s += "  Esc or Ctrl+C: Quit\n"

	return s
}

// RunCallForm starts the interactive form and returns the composed call.
// The boolean reports whether the form completed rather than being
// cancelled.
func RunCallForm(sigs []wire.FunctionSignature) (string, []wire.Value, bool, error) {
	if len(sigs) == 0 {
		return "", nil, false, fmt.Errorf("module exports no functions")
	}

	p := tea.NewProgram(newCallFormModel(sigs))
	finalModel, err := p.Run()
	if err != nil {
		return "", nil, false, err
	}

	m := finalModel.(callFormModel)
	if !m.done {
		return "", nil, false, nil
	}

	return m.function, m.args, true, nil
}
