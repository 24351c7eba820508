// The main package for the jobingest executable.
package main

import "github.com/JakeFAU/realtime-job-ingestor/cmd"

func main() {
	cmd.Execute()
}
