// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
	ErrAborted = errors.New("aborted")

	// ErrPasswordMismatch indicates the confirmation did not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// IsAborted reports whether err means the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err != nil && IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for text. validate may be nil.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// Required rejects empty input.
func Required(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

// NewPassword prompts for a masked password and its confirmation.
// validate checks the first entry, e.g. identity.ValidatePassword.
func NewPassword(validate func(string) error) (string, error) {
	first := promptui.Prompt{Label: "Password", Mask: '*', Validate: validate}
	password, err := first.Run()
	if err != nil {
		return "", wrapError(err)
	}

	confirm := promptui.Prompt{Label: "Confirm password", Mask: '*'}
	again, err := confirm.Run()
	if err != nil {
		return "", wrapError(err)
	}

	if password != again {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

// Confirm asks a yes/no question. An empty answer picks defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// promptui reports "n" and an empty answer as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return result == "" && defaultYes, nil
		}
		return false, err
	}

	answer := strings.ToLower(result)
	return answer == "y" || answer == "yes", nil
}
