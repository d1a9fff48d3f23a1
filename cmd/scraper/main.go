package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-scrape-optcg/scraper"
	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printFatal(os.Stderr, err)
		os.Exit(1)
	}
}

func printFatal(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		red.Fprintf(w, "%s failed: ", phaseErr.Phase)
		fmt.Fprintln(w, phaseErr.Err)
	} else {
		red.Fprint(w, "error: ")
		fmt.Fprintln(w, err)
	}
	if scraper.IsNetworkError(err) {
		fmt.Fprintln(w, "the card list site could not be reached; nothing was committed, rerun later")
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func setDefaultLogger(logger *slog.Logger, level *slog.LevelVar) {
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
