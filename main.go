package main

import "github.com/suh3art/Recon-toolkit/cmd"

func main() {
	cmd.Execute()
}
