package main

import (
	"flag"
	"fmt"
	"os"

	"gbbasic/pkg/compiler"
	"gbbasic/pkg/utils"
)

const testSource = `10 FOR i = 1 TO 3
20   PRINT "HI"; i
30 NEXT i
40 END
`

func main() {
	caseSensitive := flag.Bool("case-sensitive", false, "keep identifier case")
	requireNumbers := flag.Bool("require-line-numbers", false, "reject lines without a number")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "path error:", err)
			os.Exit(1)
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	page, err := compiler.ParsePage(src, compiler.ParseConfig{
		CaseSensitive:  *caseSensitive,
		AutoLineNumber: !*requireNumbers,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}
	fmt.Println("AST")
	fmt.Print(page.Dump())
}
