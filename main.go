// SPDX-License-Identifier: MPL-2.0

// Command jijflattener flattens jar-in-jar mod archives into one archive per
// mod identifier.
package main

import cmd "github.com/nuclearfarts/jijflattener/cmd/jijflattener"

func main() {
	cmd.Execute()
}
