/*
	This file holds the Command type used for command-line interaction.
	Commands bundle an operation name, positional arguments, and optional
	"key=value" settings.
*/

package cmeval

import "strings"

// Command is a parsed command line.  The first item is the command name,
// remaining items are positional arguments or "key=value" settings.
type Command []string

// String returns a space-separated command line.
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument, assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return strings.ToLower(cmd[0])
}

// Argument returns the nth argument, or the empty string if it's missing.
// Settings of the form "key=value" are skipped.
func (cmd Command) Argument(n int) string {
	pos := 0
	for _, arg := range cmd {
		if strings.Contains(arg, "=") {
			continue
		}
		if pos == n {
			return arg
		}
		pos++
	}
	return ""
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.Split(arg, "=")
			if len(elems) == 2 && elems[0] == key {
				value = elems[1]
				found = true
				return
			}
		}
	}
	return
}
