package main

import "github.com/oshokin/pkgbuild-sync/cmd/pkgbuild-sync/cmd"

func main() {
	cmd.Execute()
}
