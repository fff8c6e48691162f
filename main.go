package main

import "github.com/frahmantamala/guild-dashboard/cmd"

func main() {
	cmd.Execute()
}
