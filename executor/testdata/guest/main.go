//go:build wasip1

// Guest that calls helloAsync through the bridge and prints the results.
// The executor tests build it with GOOS=wasip1 GOARCH=wasm.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type line struct {
	ID       string `json:"id"`
	Error    string `json:"error"`
	Callback string `json:"callback"`
	Args     []any  `json:"args"`
}

func call(id string, options map[string]any) {
	payload, _ := json.Marshal(map[string]any{
		"id":   id,
		"fn":   "helloAsync",
		"args": []any{options, map[string]any{"$fn": id}},
	})
	fmt.Fprintf(os.Stderr, "\x00HOSTASYNC:%s\x00", payload)
}

func main() {
	call("plain", map[string]any{})
	call("loud", map[string]any{"louder": true})

	waiting := 2
	scanner := bufio.NewScanner(os.Stdin)
	for waiting > 0 && scanner.Scan() {
		var l line
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			continue
		}
		if l.Error != "" {
			fmt.Printf("%s: error %s\n", l.ID, l.Error)
			waiting--
			continue
		}
		if l.Callback == "" || len(l.Args) != 2 {
			continue
		}
		if l.Args[0] != nil {
			fmt.Printf("%s: callback error %v\n", l.Callback, l.Args[0])
		} else {
			fmt.Printf("%s: %v\n", l.Callback, l.Args[1])
		}
		waiting--
	}
}
