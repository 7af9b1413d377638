// Imparable tracks objectives and emails their owners as deadlines approach.
package main

import (
	"os"

	"github.com/imparable/imparable/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
