// Command f15parse reads ICAO Field 15 route descriptions from a JSONL
// file (or stdin) and writes parsed Extracted Route Sequences as JSONL to
// stdout, one line per input record.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"field15parser/internal/field15"
)

// inputRecord is one line of JSONL input.
type inputRecord struct {
	ADEP    string `json:"adep,omitempty"`
	ADES    string `json:"ades,omitempty"`
	Field15 string `json:"field15"`
}

// elementRecord mirrors one field15.RouteElement for JSON output.
type elementRecord struct {
	PointName string `json:"point_name"`
	Rules     string `json:"rules"`
	Speed     string `json:"speed,omitempty"`
	Level     string `json:"level,omitempty"`
	BreakText string `json:"break_text,omitempty"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// errorRecord mirrors one field15.ErrorRecord for JSON output.
type errorRecord struct {
	Message string `json:"message"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// outputRecord is one line of JSONL output.
type outputRecord struct {
	ADEP     string          `json:"adep,omitempty"`
	ADES     string          `json:"ades,omitempty"`
	Field15  string          `json:"field15"`
	Elements []elementRecord `json:"elements"`
	Errors   []errorRecord   `json:"errors,omitempty"`
}

func main() {
	inputPath := flag.String("in", "", "Input JSONL file (default: stdin)")
	outputPath := flag.String("out", "", "Output JSONL file (default: stdout)")
	showStats := flag.Bool("stats", false, "Print a summary of records processed and errors found")
	flag.Parse()

	in := os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	var recordCount, errorCount, elementCount uint64

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec inputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping malformed line: %v\n", err)
			continue
		}

		ers := field15.ParseF15(field15.Tokenize(rec.Field15))

		result := outputRecord{ADEP: rec.ADEP, ADES: rec.ADES, Field15: rec.Field15}
		for i := 0; i < ers.NumberOfElements(); i++ {
			e := ers.ElementAt(i)
			result.Elements = append(result.Elements, elementRecord{
				PointName: e.PointName, Rules: e.Rules.String(), Speed: e.Speed,
				Level: e.Level, BreakText: e.BreakText, Start: e.Start, End: e.End,
			})
		}
		for _, e := range ers.Errors() {
			result.Errors = append(result.Errors, errorRecord{Message: e.Message, Start: e.Start, End: e.End})
		}

		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}

		recordCount++
		elementCount += uint64(ers.NumberOfElements())
		errorCount += uint64(ers.NumberOfErrors())
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	if *showStats {
		fmt.Fprintf(os.Stderr, "Parsed %s route descriptions, %s elements, %s diagnostics\n",
			humanize.Comma(int64(recordCount)), humanize.Comma(int64(elementCount)), humanize.Comma(int64(errorCount)))
	}
}
