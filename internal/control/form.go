package control

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CommandSaveNewScript is the command carried by a submitted add-script form.
const CommandSaveNewScript = "saveNewScript"

// AddScriptMessage is the message a form delivers when the user submits it.
type AddScriptMessage struct {
	Command     string `json:"command"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// FormPresenter is the boundary to the add-script input form. Render
// displays the form and delivers the submitted message through onMessage;
// Destroy releases the form's resources.
type FormPresenter interface {
	Render(onMessage func(AddScriptMessage)) error
	Destroy()
}

// TerminalForm collects the add-script fields over a line-based prompt.
type TerminalForm struct {
	In  io.Reader
	Out io.Writer
}

func (f *TerminalForm) Render(onMessage func(AddScriptMessage)) error {
	scanner := bufio.NewScanner(f.In)

	name, err := f.prompt(scanner, "script name")
	if err != nil {
		return err
	}
	description, err := f.prompt(scanner, "description")
	if err != nil {
		return err
	}
	language, err := f.prompt(scanner, "language (flux/python)")
	if err != nil {
		return err
	}

	onMessage(AddScriptMessage{
		Command:     CommandSaveNewScript,
		Name:        name,
		Description: description,
		Language:    language,
	})
	return nil
}

func (f *TerminalForm) Destroy() {}

func (f *TerminalForm) prompt(scanner *bufio.Scanner, label string) (string, error) {
	fmt.Fprintf(f.Out, "%s> ", label)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", fmt.Errorf("input closed before the form was completed")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
