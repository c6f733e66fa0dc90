package main

import "github.com/taharajati/habit-tracker/cmd"

func main() {
	cmd.Execute()
}
