package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/hashtrails/trailscan/internal/event"
)

// Quick manual check for the date grammar: pipe announcement lines on
// stdin and see what the parser makes of them.
//
//	go run scripts/check-dates.go < samples.txt
func main() {
	ref := time.Now().UTC()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		iso, start, end, ok := event.FindDate(line, ref)
		if !ok {
			fmt.Printf("  (no date)  %s\n", line)
			continue
		}
		out := iso
		if clock, ok := event.ParseClock(line); ok {
			out += " " + clock
		}
		fmt.Printf("%s  [%s]  %s\n", out, line[start:end], line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
		os.Exit(1)
	}
}
