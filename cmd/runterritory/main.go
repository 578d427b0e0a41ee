package main

import "github.com/runterritory/server/cmd/runterritory/cmd"

func main() {
	cmd.Execute()
}
