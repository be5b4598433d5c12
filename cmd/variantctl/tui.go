package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/wizard"
)

const (
	focusName = iota
	focusCode
	focusDefault
	focusCount
)

// codeMsg carries a code produced by the wizard's debounced regeneration.
type codeMsg string

type savedMsg struct {
	variant *model.ProductVariant
	err     error
}

// wizardOptions forwards regenerated codes to the screen. The send never
// blocks the wizard; a code that cannot be delivered is picked up from the
// next snapshot anyway.
func wizardOptions(codes chan<- string) *wizard.Options {
	return &wizard.Options{
		OnCodeRegenerated: func(code string) {
			select {
			case codes <- code:
			default:
			}
		},
	}
}

func waitForCode(codes <-chan string) tea.Cmd {
	if codes == nil {
		return nil
	}
	return func() tea.Msg {
		code, ok := <-codes
		if !ok {
			return nil
		}
		return codeMsg(code)
	}
}

// wizardModel drives a variant wizard from the terminal. It keeps no draft
// of its own: everything shown comes from the wizard's snapshot.
type wizardModel struct {
	ctx     context.Context
	w       *wizard.Wizard
	codes   <-chan string
	defs    []model.AttributeDefinition
	cursor  int
	editing bool
	value   textinput.Model
	name    textinput.Model
	code    textinput.Model
	focus   int
	saving  bool
	message string
	result  *model.ProductVariant
	done    bool
}

func newWizardModel(ctx context.Context, w *wizard.Wizard, codes <-chan string) wizardModel {
	newInput := func(placeholder string, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = limit
		return ti
	}
	return wizardModel{
		ctx:   ctx,
		w:     w,
		codes: codes,
		defs:  w.Definitions(),
		value: newInput("value", 255),
		name:  newInput("variant name", 255),
		code:  newInput("variant code", 50),
	}
}

func (m wizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForCode(m.codes))
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case codeMsg:
		// Only the first step shows the live code.
		return m, waitForCode(m.codes)
	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.message = apperr.PublicMessage(msg.err)
			return m, nil
		}
		m.result = msg.variant
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.cancel()
		}
		if m.saving {
			return m, nil
		}
		if m.w.State() == wizard.StateNameAndCode {
			return m.updateNameAndCode(msg)
		}
		return m.updateAttributes(msg)
	}
	return m, nil
}

func (m wizardModel) cancel() (tea.Model, tea.Cmd) {
	_ = m.w.Cancel()
	m.done = true
	return m, tea.Quit
}

func (m wizardModel) updateAttributes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.Type {
		case tea.KeyEsc:
			m.editing = false
			m.value.Blur()
			return m, nil
		case tea.KeyEnter:
			m.editing = false
			m.value.Blur()
			m.report(m.w.SetAttributeValue(m.defs[m.cursor].ID, m.value.Value()))
			return m, nil
		}
		var cmd tea.Cmd
		m.value, cmd = m.value.Update(msg)
		return m, cmd
	}

	if len(m.defs) == 0 {
		if msg.Type == tea.KeyEsc {
			return m.cancel()
		}
		if msg.Type == tea.KeyTab {
			return m.next()
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m.cancel()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.defs)-1 {
			m.cursor++
		}
	case " ":
		id := m.defs[m.cursor].ID
		_, draft := m.w.Snapshot()
		if contains(draft.SelectedAttributeIDs, id) {
			m.report(m.w.DeselectAttribute(id))
		} else {
			m.report(m.w.SelectAttribute(id))
		}
	case "enter":
		id := m.defs[m.cursor].ID
		if err := m.w.SelectAttribute(id); err != nil {
			m.report(err)
			return m, nil
		}
		_, draft := m.w.Snapshot()
		m.value.SetValue(draft.AttributeValues[id])
		m.value.CursorEnd()
		m.editing = true
		m.message = ""
		cmd := m.value.Focus()
		return m, cmd
	case "tab":
		return m.next()
	}
	return m, nil
}

func (m wizardModel) next() (tea.Model, tea.Cmd) {
	if err := m.w.Next(); err != nil {
		m.report(err)
		return m, nil
	}
	_, draft := m.w.Snapshot()
	m.name.SetValue(draft.Name)
	m.code.SetValue(draft.Code)
	m.message = ""
	cmd := m.setFocus(focusName)
	return m, cmd
}

func (m wizardModel) updateNameAndCode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.cancel()
	case "shift+tab":
		m.name.Blur()
		m.code.Blur()
		m.report(m.w.Previous())
		return m, nil
	case "tab":
		cmd := m.setFocus((m.focus + 1) % focusCount)
		return m, cmd
	case "ctrl+r":
		code, err := m.w.Regenerate()
		if err != nil {
			m.report(err)
			return m, nil
		}
		m.code.SetValue(code)
		m.code.CursorEnd()
		m.message = ""
		return m, nil
	case "enter":
		m.saving = true
		m.message = "saving..."
		return m, m.save()
	}

	switch m.focus {
	case focusName:
		var cmd tea.Cmd
		before := m.name.Value()
		m.name, cmd = m.name.Update(msg)
		if m.name.Value() != before {
			m.report(m.w.SetName(m.name.Value()))
		}
		return m, cmd
	case focusCode:
		var cmd tea.Cmd
		before := m.code.Value()
		m.code, cmd = m.code.Update(msg)
		if m.code.Value() != before {
			m.report(m.w.SetCode(m.code.Value()))
		}
		return m, cmd
	default:
		if msg.String() == " " {
			_, draft := m.w.Snapshot()
			m.report(m.w.SetDefault(!draft.IsDefault))
		}
		return m, nil
	}
}

func (m *wizardModel) setFocus(focus int) tea.Cmd {
	m.focus = focus
	m.name.Blur()
	m.code.Blur()
	switch focus {
	case focusName:
		return m.name.Focus()
	case focusCode:
		return m.code.Focus()
	}
	return nil
}

// save runs the commit off the update loop.
func (m wizardModel) save() tea.Cmd {
	w, ctx := m.w, m.ctx
	return func() tea.Msg {
		v, err := w.Save(ctx)
		return savedMsg{variant: v, err: err}
	}
}

func (m *wizardModel) report(err error) {
	if err == nil {
		m.message = ""
		return
	}
	if _, ok := apperr.As(err); ok {
		m.message = apperr.PublicMessage(err)
		return
	}
	m.message = err.Error()
}

func (m wizardModel) View() string {
	if m.done {
		return ""
	}
	state, draft := m.w.Snapshot()
	p := m.w.Product()

	var b strings.Builder
	fmt.Fprintf(&b, "%s variant of %s\n\n", titleCase(m.w.Mode().String()), p.Name)

	if state == wizard.StateSelectAttributes {
		b.WriteString("Attributes that define this variant:\n")
		for i, d := range m.defs {
			pointer := "  "
			if i == m.cursor {
				pointer = "> "
			}
			mark := "[ ]"
			if contains(draft.SelectedAttributeIDs, d.ID) {
				mark = "[x]"
			}
			value := draft.AttributeValues[d.ID]
			if m.editing && i == m.cursor {
				value = m.value.View()
			}
			fmt.Fprintf(&b, "%s%s %-16s %s\n", pointer, mark, d.Name, value)
		}
		if len(m.defs) == 0 {
			b.WriteString("  (this product has no attributes)\n")
		}
		fmt.Fprintf(&b, "\nCode: %s\n", draft.Code)
		b.WriteString("\nspace select  enter edit value  tab continue  esc cancel\n")
	} else {
		fmt.Fprintf(&b, "%s Name:    %s\n", m.focusMark(focusName), m.name.View())
		fmt.Fprintf(&b, "%s Code:    %s\n", m.focusMark(focusCode), m.code.View())
		fmt.Fprintf(&b, "%s Default: %s\n", m.focusMark(focusDefault), yesNo(draft.IsDefault))
		b.WriteString("\ntab next field  ctrl+r regenerate code  enter save  shift+tab back  esc cancel\n")
	}

	if m.message != "" {
		fmt.Fprintf(&b, "\n%s\n", m.message)
	}
	return b.String()
}

func (m wizardModel) focusMark(focus int) string {
	if m.focus == focus {
		return ">"
	}
	return " "
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// runWizard runs the TUI until the variant is saved or the wizard cancelled.
func runWizard(ctx context.Context, w *wizard.Wizard, codes <-chan string) error {
	p := tea.NewProgram(newWizardModel(ctx, w, codes))
	result, err := p.Run()
	if err != nil {
		_ = w.Cancel()
		return err
	}
	final, ok := result.(wizardModel)
	if !ok || final.result == nil {
		fmt.Println("wizard cancelled, nothing saved")
		return nil
	}
	fmt.Printf("saved variant %s  %s  %s\n", final.result.ID, final.result.Code, final.result.Name)
	return nil
}
