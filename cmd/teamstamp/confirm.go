package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/alnah/go-teamstamp"
)

// newConfirm returns the overwrite confirmation for a run.
// Only an exact "Y" answer deletes; a non-interactive stdin declines
// unless --yes was given.
func newConfirm(env *Environment, yes bool) teamstamp.ConfirmFunc {
	return func(path string) bool {
		if yes {
			return true
		}
		if env.StdinIsTerminal == nil || !env.StdinIsTerminal() {
			fmt.Fprintf(env.Stderr, "%s already exists and stdin is not a terminal\n", path)
			return false
		}

		fmt.Fprintf(env.Stderr, "%s already exists! Delete [Y/n]? ", path)
		answer, err := bufio.NewReader(env.Stdin).ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		return strings.TrimRight(answer, "\r\n") == "Y"
	}
}
