package main

import "github.com/Togather-Foundation/event-api/cmd/server/cmd"

func main() {
	cmd.Execute()
}
