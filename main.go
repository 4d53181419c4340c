package main

import "authload/cmd"

func main() {
	cmd.Execute()
}
