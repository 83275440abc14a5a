package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
)

// envKeys maps dashed flag names onto CLIPMON_DATA_DIR style variables.
var envKeys = strings.NewReplacer("-", "_")

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if time.Since(t) < time.Second {
		return "now"
	}
	return humanize.Time(t)
}

// oneLine squashes whitespace runs so multi-line clipboard text fits a table
// cell or list row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// confirm asks question on w and reports whether the answer read from r
// starts with y.
func confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printJSON writes v to w, indented.
func printJSON(w io.Writer, v any) error {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(enc))
	return err
}
