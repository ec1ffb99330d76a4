// Command forge reads a package manifest, resolves its dependency
// graph, lowers the result into a build-unit DAG, and drives a
// fingerprinted, parallel scheduler over it.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
