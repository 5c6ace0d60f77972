// bompack is a headless DXF nesting tool for laser-cutting jobs.
//
// Reads a bill of materials referencing DXF part drawings, nests every
// part onto stock sheets, and writes one packed DXF per sheet.
//
// Build:
//
//	go build -o bompack ./cmd/bompack
package main

import "github.com/noazark/bom-pack/cmd/bompack/cmd"

func main() {
	cmd.Execute()
}
