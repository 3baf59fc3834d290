package main

import "github.com/frahmantamala/muamalati/cmd"

func main() {
	cmd.Execute()
}
