// Command hostasync calls the helloAsync host function from the command
// line, from WASI guest modules, or interactively.
package main

func main() {
	Execute()
}
