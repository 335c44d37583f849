package cli

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
)

// Terminal is the pair of streams prompts talk to.
type Terminal struct {
	In  io.ReadCloser
	Out io.WriteCloser
}

// Stdio is the process terminal.
func Stdio() Terminal {
	return Terminal{In: os.Stdin, Out: os.Stdout}
}

// PromptConfirm asks a yes/no question. Declining is not an error.
func (t Terminal) PromptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.In,
		Stdout:    t.Out,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptConfirm asks a yes/no question on the process terminal.
func PromptConfirm(label string) (bool, error) {
	return Stdio().PromptConfirm(label)
}
