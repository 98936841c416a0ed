package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/utils"
)

const historyFile = ".gbbasic_history"

func main() {
	kernelPath := flag.String("kernel", "", "kernel ROM image (default: a blank stub)")
	symbolsPath := flag.String("symbols", "", "kernel symbol table (default: kernel with .sym extension)")
	aliasesPath := flag.String("aliases", "", "kernel alias table")
	assetsPath := flag.String("assets", "", "asset bundle")
	flag.Parse()

	rom, symText := stubKernel(), stubSymbols
	if *kernelPath != "" {
		var err error
		if rom, err = os.ReadFile(*kernelPath); err != nil {
			log.Fatalf("Failed to read kernel: %v", err)
		}
		if *symbolsPath == "" {
			*symbolsPath = utils.WithExt(*kernelPath, ".sym")
		}
		data, err := os.ReadFile(*symbolsPath)
		if err != nil {
			log.Fatalf("Failed to read symbols: %v", err)
		}
		symText = string(data)
	}
	var aliasText string
	if *aliasesPath != "" {
		data, err := os.ReadFile(*aliasesPath)
		if err != nil {
			log.Fatalf("Failed to read aliases: %v", err)
		}
		aliasText = string(data)
	}
	var bundle *assets.Bundle
	if *assetsPath != "" {
		var err error
		if bundle, err = assets.Load(*assetsPath); err != nil {
			log.Fatalf("Failed to load assets: %v", err)
		}
	}

	s := newSession(rom, symText, aliasText, bundle)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.complete)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("GB BASIC console, :help for commands")
	for {
		line, err := ln.Prompt("gbb> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			return
		}
		out, done := s.eval(line)
		fmt.Print(out)
		if done {
			return
		}
		if line != "" {
			ln.AppendHistory(line)
		}
	}
}
