// Command logiclm compiles OLAP requests into logic programs and serves
// them over HTTP.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}
