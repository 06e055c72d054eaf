// Package cmdutil provides shared utilities for dittobox commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/prompt"
)

// EnvActor names the identity commands act as when --as is not given.
const EnvActor = "DITTOBOX_AS"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	As         string
	Output     string
	NoColor    bool
	Verbose    bool
}

// ActorIdentity returns the identity to act as, from --as or DITTOBOX_AS.
func ActorIdentity() (string, error) {
	identity := strings.TrimSpace(Flags.As)
	if identity == "" {
		identity = strings.TrimSpace(os.Getenv(EnvActor))
	}
	if identity == "" {
		return "", fmt.Errorf("no identity to act as: pass --as or set %s", EnvActor)
	}
	return identity, nil
}

// Printer returns a printer for w in the selected output format.
func Printer(w io.Writer) (*output.Printer, error) {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !Flags.NoColor), nil
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true)
// and runs deleteFn.
func RunDeleteWithConfirmation(w io.Writer, resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		return HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	printer, err := Printer(w)
	if err != nil {
		return err
	}
	return printer.Result(map[string]string{"deleted": name},
		fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
}

// HandleAbort turns a prompt abort (Ctrl+C) into a clean exit.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// ParseCommaSeparatedList parses a comma-separated string into a slice of
// trimmed, non-empty strings.
func ParseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// BoolToYesNo converts a boolean to "yes" or "no".
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns value, or fallback when value is empty.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
