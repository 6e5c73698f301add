package main

import "cvintake/cmd/handlers"

func main() {
	handlers.Execute()
}
