// regresser runs the electron energy regression stage over a stream of
// events.
//
// Usage:
//
//	regresser run   --pipeline=pipeline.yml [--grpc-port=7070] [--metrics-port=9100]
//	regresser check --config=regresser.yml
//	regresser probe --addr=localhost:7070
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
